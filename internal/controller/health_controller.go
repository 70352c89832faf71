package controller

import (
	"study-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) IHealthController {
	return &healthController{
		db:  db,
		rdb: rdb,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	dbOK := false
	if sqlDB, err := c.db.DB(); err == nil {
		dbOK = sqlDB.PingContext(ctx.Context()) == nil
	}

	redisOK := c.rdb.Ping(ctx.Context()).Err() == nil

	status := fiber.Map{
		"status":          "healthy",
		"database":        dbOK,
		"redis_connected": redisOK,
	}
	if !dbOK || !redisOK {
		status["status"] = "degraded"
	}

	return ctx.JSON(serverutils.SuccessResponse("Success health check", status))
}
