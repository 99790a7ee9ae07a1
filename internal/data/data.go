package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	_ "github.com/lib/pq"

	"github.com/hongguan-lab/macro_deck/internal/conf"
)

// Data 持有数据库连接，供各仓储实现共用。
type Data struct {
	db *sql.DB
}

func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	db, err := sql.Open(c.Database.Driver, c.Database.Source)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, nil, err
	}

	// 启动时幂等建表，表结构变更通过追加列完成
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ppt_quarter (
			id SERIAL PRIMARY KEY,
			quarter_id TEXT NOT NULL UNIQUE
		)
	`); err != nil {
		return nil, nil, fmt.Errorf("failed to init ppt_quarter table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ppt_reports (
			id SERIAL PRIMARY KEY,
			report TEXT NOT NULL,
			quarter_id INTEGER REFERENCES ppt_quarter(id),
			create_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return nil, nil, fmt.Errorf("failed to init ppt_reports table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ppt_reports_quarter_latest
		ON ppt_reports (quarter_id, create_time DESC, id DESC)
	`); err != nil {
		return nil, nil, fmt.Errorf("failed to init ppt_reports index: %w", err)
	}

	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		db.Close()
	}
	return &Data{db: db}, cleanup, nil
}

// Ping 探活数据库连接，供健康检查使用。
func (d *Data) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
