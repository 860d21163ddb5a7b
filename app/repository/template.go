package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cloudcore-labs/notification-hub/app/template"
)

// TemplateRepository stores notification template bodies in MySQL and
// acts as the template mapper for the dispatch workers.
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository constructs a repository backed by MySQL.
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template body under the given id.
func (r *TemplateRepository) Create(ctx context.Context, templateID string, body string) error {
	const query = `
		INSERT INTO templates (template_id, body)
		VALUES (?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, templateID, body); err != nil {
		return fmt.Errorf("insert template %s: %w", templateID, err)
	}
	return nil
}

// GetContent resolves a template id to its body and extracted placeholder
// keys. A missing id yields Found=false with no error; infrastructure
// failures are returned as errors.
func (r *TemplateRepository) GetContent(ctx context.Context, templateID string) (template.Result, error) {
	const query = `
		SELECT body
		FROM templates
		WHERE template_id = ?
	`
	var body string
	err := r.db.QueryRowContext(ctx, query, templateID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return template.Result{Found: false}, nil
	}
	if err != nil {
		return template.Result{}, fmt.Errorf("select template %s: %w", templateID, err)
	}

	return template.Result{
		Found: true,
		Body:  body,
		Keys:  template.ExtractKeys(body),
	}, nil
}
