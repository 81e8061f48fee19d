package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/Murega14/agrilink/internal/services"
	"github.com/Murega14/agrilink/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInsufficientStock):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidTransition):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// fail logs err and writes it as a JSON error. Internal errors are not echoed
// to the client.
func fail(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	log.Printf("%s: %v", message, err)
	body := fiber.Map{"message": message}
	if status != fiber.StatusInternalServerError {
		body["error"] = err.Error()
	}
	return c.Status(status).JSON(body)
}

func invalidBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body for %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  validation.Errors(err),
	})
}

// pageQuery reads the optional page and per_page query parameters. Zero means
// the parameter was absent.
func pageQuery(c *fiber.Ctx) (int, int, error) {
	page, err := positiveQuery(c, "page")
	if err != nil {
		return 0, 0, err
	}
	perPage, err := positiveQuery(c, "per_page")
	if err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

func positiveQuery(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", services.ErrValidation, key)
	}
	return n, nil
}
