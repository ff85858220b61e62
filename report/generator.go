package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator renders invoice documents and stores them on disk. The file name
// carries a UUID suffix so regenerating a document never clobbers a copy that
// may already have been delivered.
type Generator struct {
	logger  *slog.Logger
	client  *Client
	dir     string
	company Company
	now     func() time.Time
}

// NewGenerator builds a Generator writing under dir.
func NewGenerator(logger *slog.Logger, client *Client, dir string, company Company) *Generator {
	return &Generator{logger: logger, client: client, dir: dir, company: company, now: time.Now}
}

// Generate renders data to PDF and returns the stored file path.
func (g *Generator) Generate(ctx context.Context, data DocumentData) (string, error) {
	data.Company = g.company
	data.GeneratedAt = g.now()

	html, err := RenderInvoiceHTML(data)
	if err != nil {
		return "", fmt.Errorf("render invoice html: %w", err)
	}

	pdf, err := g.client.RenderHTML(ctx, html)
	if err != nil {
		return "", fmt.Errorf("render invoice pdf: %w", err)
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice dir: %w", err)
	}

	name := fmt.Sprintf("invoice_%s_%s.pdf", sanitizeNumber(data.Number), uuid.NewString())
	path := filepath.Join(g.dir, name)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("write invoice pdf: %w", err)
	}

	g.logger.Info("invoice document stored",
		slog.String("number", data.Number), slog.String("path", path))
	return path, nil
}

func sanitizeNumber(number string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-':
			return r
		default:
			return '_'
		}
	}, number)
}
