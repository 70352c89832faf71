package service

import (
	"context"
	"encoding/json"
	"time"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/specification"
	"study-assistant-be/internal/repository/unitofwork"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.Provider
	chunkSize         int
	chunkOverlap      int
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.Provider,
	chunkSize int,
	chunkOverlap int,
	log logger.ILogger,
) IConsumerService {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 200
	}
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		chunkSize:         chunkSize,
		chunkOverlap:      chunkOverlap,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage rebuilds the passage index for one document: split, embed
// every chunk, then swap the old passages for the new set in a single
// transaction. A half-indexed document is never visible to retrieval.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIndexDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal index message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid payloads never become valid, do not retry
		return
	}

	cs.log.Info("consumer", "indexing document", map[string]interface{}{"document_id": payload.DocumentId})

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		cs.log.Error("consumer", "failed to load document", map[string]interface{}{
			"document_id": payload.DocumentId, "error": err.Error(),
		})
		msg.Nack()
		return
	}
	if doc == nil {
		cs.log.Warn("consumer", "document vanished before indexing", map[string]interface{}{"document_id": payload.DocumentId})
		msg.Ack()
		return
	}

	content := doc.Title + "\n\n" + doc.Content
	chunks := utils.SplitText(content, cs.chunkSize, cs.chunkOverlap)
	cs.log.Info("consumer", "content split", map[string]interface{}{
		"document_id": doc.Id, "chunks": len(chunks),
	})

	newPassages := make([]*entity.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := cs.embeddingProvider.Embed(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			cs.log.Error("consumer", "embedding failed", map[string]interface{}{
				"document_id": doc.Id, "chunk": i, "error": err.Error(),
			})
			cs.markFailed(ctx, doc)
			msg.Nack()
			return
		}

		newPassages = append(newPassages, &entity.Passage{
			Id:             uuid.New(),
			Text:           chunk,
			EmbeddingValue: vector,
			DocumentId:     doc.Id,
			ChunkIndex:     i,
			CreatedAt:      time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		cs.log.Error("consumer", "failed to begin transaction", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.PassageRepository().DeleteByDocumentId(ctx, doc.Id); err != nil {
		cs.log.Error("consumer", "failed to delete old passages", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	if err := uow.PassageRepository().CreateBulk(ctx, newPassages); err != nil {
		cs.log.Error("consumer", "failed to create passages", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	now := time.Now()
	doc.Status = entity.DocumentStatusIndexed
	doc.UpdatedAt = &now
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		cs.log.Error("consumer", "failed to update document status", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		cs.log.Error("consumer", "failed to commit transaction", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	cs.log.Info("consumer", "document indexed", map[string]interface{}{
		"document_id": doc.Id, "passages": len(newPassages),
	})
	msg.Ack()
}

func (cs *consumerService) markFailed(ctx context.Context, doc *entity.Document) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()
	doc.Status = entity.DocumentStatusFailed
	doc.UpdatedAt = &now
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		cs.log.Error("consumer", "failed to mark document as failed", map[string]interface{}{
			"document_id": doc.Id, "error": err.Error(),
		})
	}
}
