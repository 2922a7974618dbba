package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/reel/internal/catalog"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeErr turns catalog failures into a short status-bar line.
func describeErr(err error) string {
	var upstream *catalog.UpstreamError
	var network *catalog.NetworkError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	case errors.As(err, &upstream):
		switch upstream.Status {
		case 401:
			return "Catalog rejected the API key"
		case 404:
			return "Title not found"
		case 429:
			return "Rate limited by the catalog"
		}
		return fmt.Sprintf("Catalog error (%d)", upstream.Status)
	case errors.As(err, &network):
		return "Network unavailable"
	}
	return err.Error()
}
