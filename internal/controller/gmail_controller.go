package controller

import (
	"errors"
	"time"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/pkg/serverutils"
	"study-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IGmailController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Emails(ctx *fiber.Ctx) error
	Summarize(ctx *fiber.Ctx) error
}

type gmailController struct {
	gmailService  service.IGmailService
	sessionSecret string
	clientURL     string
}

func NewGmailController(gmailService service.IGmailService, sessionSecret, clientURL string) IGmailController {
	return &gmailController{
		gmailService:  gmailService,
		sessionSecret: sessionSecret,
		clientURL:     clientURL,
	}
}

func (c *gmailController) RegisterRoutes(r fiber.Router) {
	auth := r.Group("/auth/gmail/v1")
	auth.Get("login", c.Login)
	auth.Get("callback", c.Callback)
	auth.Get("status", c.Status)
	auth.Post("logout", c.Logout)

	mail := r.Group("/email/v1")
	mail.Get("", c.Emails)
	mail.Post("summarize", c.Summarize)
}

func (c *gmailController) Login(ctx *fiber.Ctx) error {
	return ctx.Redirect(c.gmailService.LoginURL(), fiber.StatusFound)
}

func (c *gmailController) Callback(ctx *fiber.Ctx) error {
	if errParam := ctx.Query("error"); errParam != "" {
		return fiber.NewError(fiber.StatusBadRequest, "authorization denied: "+errParam)
	}

	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing code or state")
	}

	sessionID, err := c.gmailService.HandleCallback(ctx.Context(), state, code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOAuthState) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid state parameter")
		}
		return err
	}

	if err := serverutils.IssueSessionCookie(ctx, c.sessionSecret, sessionID, 24*time.Hour); err != nil {
		return err
	}

	return ctx.Redirect(c.clientURL+"/?auth=success", fiber.StatusFound)
}

func (c *gmailController) Status(ctx *fiber.Ctx) error {
	sessionID, err := serverutils.SessionIDFromCookie(ctx, c.sessionSecret)
	authenticated := err == nil && c.gmailService.Authenticated(sessionID)

	return ctx.JSON(serverutils.SuccessResponse("Success get auth status", dto.AuthStatusResponse{
		Authenticated: authenticated,
	}))
}

func (c *gmailController) Logout(ctx *fiber.Ctx) error {
	if sessionID, err := serverutils.SessionIDFromCookie(ctx, c.sessionSecret); err == nil {
		c.gmailService.Logout(sessionID)
	}
	serverutils.ClearSessionCookie(ctx)

	return ctx.JSON(serverutils.SuccessResponse[any]("Success logout", nil))
}

func (c *gmailController) Emails(ctx *fiber.Ctx) error {
	sessionID, err := serverutils.SessionIDFromCookie(ctx, c.sessionSecret)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated, login first")
	}

	mode := ctx.Query("mode", "recent")
	n := ctx.QueryInt("n", 5)
	useCache := ctx.QueryBool("use_cache", true)

	res, err := c.gmailService.GetEmails(ctx.Context(), sessionID, mode, n, useCache)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthenticated) {
			return fiber.NewError(fiber.StatusUnauthorized, "not authenticated, login first")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get emails", res))
}

func (c *gmailController) Summarize(ctx *fiber.Ctx) error {
	sessionID, err := serverutils.SessionIDFromCookie(ctx, c.sessionSecret)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated, login first")
	}

	var req dto.SummarizeEmailsRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if req.Mode == "" {
		req.Mode = "recent"
	}
	if req.N == 0 {
		req.N = 5
	}

	res, err := c.gmailService.Summarize(ctx.Context(), sessionID, req.Mode, req.N)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthenticated) {
			return fiber.NewError(fiber.StatusUnauthorized, "not authenticated, login first")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success summarize emails", res))
}
