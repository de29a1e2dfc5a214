package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hedgefarm/internal/models"
)

// ErrSummaryNotFound - сводка PNL группы отсутствует в БД
var ErrSummaryNotFound = errors.New("pnl summary not found")

// PnLRepository - работа с таблицей group_pnl.
//
// История циклов живёт в памяти runner'а; в БД выгружается только сводка,
// чтобы PNL переживал рестарты процесса.
type PnLRepository struct {
	db *sql.DB
}

// NewPnLRepository создает новый экземпляр репозитория
func NewPnLRepository(db *sql.DB) *PnLRepository {
	return &PnLRepository{db: db}
}

// Upsert записывает сводку группы, перезаписывая предыдущую
func (r *PnLRepository) Upsert(ctx context.Context, s *models.PnLSummary) error {
	query := `
		INSERT INTO group_pnl (group_id, group_label, total, cycles, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id)
		DO UPDATE SET group_label = $2, total = $3, cycles = $4, updated_at = $5`

	s.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query, s.GroupID, s.GroupLabel, s.Total, s.Cycles, s.UpdatedAt)
	return err
}

// GetByGroupID возвращает сводку группы
func (r *PnLRepository) GetByGroupID(ctx context.Context, groupID int) (*models.PnLSummary, error) {
	query := `
		SELECT group_id, group_label, total, cycles, updated_at
		FROM group_pnl
		WHERE group_id = $1`

	s := &models.PnLSummary{}
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(
		&s.GroupID,
		&s.GroupLabel,
		&s.Total,
		&s.Cycles,
		&s.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, err
	}

	return s, nil
}

// List возвращает сводки всех групп
func (r *PnLRepository) List(ctx context.Context) ([]*models.PnLSummary, error) {
	query := `
		SELECT group_id, group_label, total, cycles, updated_at
		FROM group_pnl
		ORDER BY group_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.PnLSummary
	for rows.Next() {
		s := &models.PnLSummary{}
		err := rows.Scan(&s.GroupID, &s.GroupLabel, &s.Total, &s.Cycles, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
