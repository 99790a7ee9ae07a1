package data

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/lib/pq"

	"github.com/hongguan-lab/macro_deck/internal/biz"
)

// pq 的唯一约束冲突错误码
const pqUniqueViolation = "23505"

type reportRepo struct {
	data *Data
	log  *log.Helper
}

// NewReportRepo 创建报告仓储。
func NewReportRepo(data *Data, logger log.Logger) biz.ReportRepo {
	return &reportRepo{data: data, log: log.NewHelper(logger)}
}

func (r *reportRepo) ListQuarters(ctx context.Context) ([]*biz.Quarter, error) {
	rows, err := r.data.db.QueryContext(ctx, `
		SELECT id, quarter_id FROM ppt_quarter ORDER BY quarter_id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quarters := make([]*biz.Quarter, 0)
	for rows.Next() {
		q := &biz.Quarter{}
		if err := rows.Scan(&q.ID, &q.QuarterID); err != nil {
			return nil, err
		}
		quarters = append(quarters, q)
	}
	return quarters, rows.Err()
}

func (r *reportRepo) LatestQuarter(ctx context.Context) (*biz.Quarter, error) {
	q := &biz.Quarter{}
	err := r.data.db.QueryRowContext(ctx, `
		SELECT id, quarter_id FROM ppt_quarter ORDER BY quarter_id DESC LIMIT 1
	`).Scan(&q.ID, &q.QuarterID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *reportRepo) CreateQuarter(ctx context.Context, quarterID string) (*biz.Quarter, error) {
	q := &biz.Quarter{QuarterID: quarterID}
	err := r.data.db.QueryRowContext(ctx, `
		INSERT INTO ppt_quarter (quarter_id) VALUES ($1) RETURNING id
	`, quarterID).Scan(&q.ID)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, errors.Conflict("QUARTER_EXISTS", "该季度已存在")
		}
		return nil, err
	}
	r.log.WithContext(ctx).Infof("创建季度 %s (id=%d)", quarterID, q.ID)
	return q, nil
}

func (r *reportRepo) LatestReport(ctx context.Context, quarterID *int) (*biz.ReportRecord, error) {
	var row *sql.Row
	if quarterID != nil {
		row = r.data.db.QueryRowContext(ctx, `
			SELECT id, report, quarter_id, create_time FROM ppt_reports
			WHERE quarter_id = $1
			ORDER BY create_time DESC, id DESC LIMIT 1
		`, *quarterID)
	} else {
		row = r.data.db.QueryRowContext(ctx, `
			SELECT id, report, quarter_id, create_time FROM ppt_reports
			ORDER BY create_time DESC, id DESC LIMIT 1
		`)
	}

	rec := &biz.ReportRecord{}
	var report string
	var quarter sql.NullInt64
	err := row.Scan(&rec.ID, &report, &quarter, &rec.CreateTime)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Report = []byte(report)
	if quarter.Valid {
		id := int(quarter.Int64)
		rec.QuarterID = &id
	}
	return rec, nil
}

func (r *reportRepo) SaveReport(ctx context.Context, reportJSON []byte, quarterID int) (int, error) {
	var id int
	err := r.data.db.QueryRowContext(ctx, `
		INSERT INTO ppt_reports (report, quarter_id) VALUES ($1, $2) RETURNING id
	`, string(reportJSON), quarterID).Scan(&id)
	if err != nil {
		return 0, err
	}
	r.log.WithContext(ctx).Infof("保存报告 id=%d quarter=%d", id, quarterID)
	return id, nil
}
