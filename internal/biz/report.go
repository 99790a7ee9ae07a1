// Package biz 承载报告与季度的领域逻辑：边界校验、最新报告解析与
// 仓储接口定义。存储细节由 data 层实现。
package biz

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/hongguan-lab/macro_deck/pkg/model"
)

// Quarter 财季，quarterId 形如 2024Q1，作为报告的分区键。
type Quarter struct {
	ID        int    `json:"id"`
	QuarterID string `json:"quarterId"`
}

// ReportRecord 一条已发布的报告记录。报告历史只增不改：每次发布插入
// 新行，读取时取该季度 create_time 最大的一行。
type ReportRecord struct {
	ID         int
	Report     json.RawMessage
	QuarterID  *int // 旧数据可能没有季度归属
	CreateTime time.Time
}

// LatestReport 最新报告查询结果。Record 为 nil 表示该季度尚无报告。
type LatestReport struct {
	Record    *ReportRecord
	QuarterID *int // 实际解析到的季度
}

var quarterIDPattern = regexp.MustCompile(`^\d{4}Q[1-4]$`)

// ReportRepo 报告与季度的仓储接口
type ReportRepo interface {
	ListQuarters(ctx context.Context) ([]*Quarter, error)
	// LatestQuarter 返回 quarter_id 最大的季度；没有任何季度时返回 nil。
	LatestQuarter(ctx context.Context) (*Quarter, error)
	// CreateQuarter 唯一约束冲突时返回 409 错误。
	CreateQuarter(ctx context.Context, quarterID string) (*Quarter, error)
	// LatestReport 返回指定季度最新的报告行；quarterID 为 nil 时退化为
	// 全表最新行。没有可用行时返回 nil。
	LatestReport(ctx context.Context, quarterID *int) (*ReportRecord, error)
	// SaveReport 追加一行（从不更新），返回生成的 id。
	SaveReport(ctx context.Context, reportJSON []byte, quarterID int) (int, error)
}

// ReportUseCase 报告用例
type ReportUseCase struct {
	repo ReportRepo
	log  *log.Helper
}

// NewReportUseCase 创建报告用例。
func NewReportUseCase(repo ReportRepo, logger log.Logger) *ReportUseCase {
	return &ReportUseCase{repo: repo, log: log.NewHelper(logger)}
}

// ListQuarters 返回全部季度，按 quarterId 降序。
func (uc *ReportUseCase) ListQuarters(ctx context.Context) ([]*Quarter, error) {
	return uc.repo.ListQuarters(ctx)
}

// CreateQuarter 创建季度。校验在边界完成，落库前不产生任何副作用。
func (uc *ReportUseCase) CreateQuarter(ctx context.Context, quarterID string) (*Quarter, error) {
	if quarterID == "" {
		return nil, errors.BadRequest("QUARTER_ID_REQUIRED", "季度ID为必填项")
	}
	if !quarterIDPattern.MatchString(quarterID) {
		return nil, errors.BadRequest("QUARTER_ID_INVALID", "季度ID格式错误，应形如 2024Q1")
	}
	return uc.repo.CreateQuarter(ctx, quarterID)
}

// GetLatestReport 返回季度的当前报告。未指定季度时先解析到最新季度；
// 报告或季度不存在按空结果返回而非错误。
func (uc *ReportUseCase) GetLatestReport(ctx context.Context, quarterID *int) (*LatestReport, error) {
	resolved := quarterID
	if resolved == nil {
		quarter, err := uc.repo.LatestQuarter(ctx)
		if err != nil {
			return nil, err
		}
		if quarter != nil {
			resolved = &quarter.ID
		}
	}

	record, err := uc.repo.LatestReport(ctx, resolved)
	if err != nil {
		return nil, err
	}
	return &LatestReport{Record: record, QuarterID: resolved}, nil
}

// SaveReport 发布报告：载荷必须是幻灯片数组且必须指定季度。
func (uc *ReportUseCase) SaveReport(ctx context.Context, report json.RawMessage, quarterID *int) (int, error) {
	if len(report) == 0 {
		return 0, errors.BadRequest("REPORT_INVALID", "Invalid report format")
	}
	if _, err := model.DecodeReport(report); err != nil {
		uc.log.WithContext(ctx).Warnf("报告载荷非法: %v", err)
		return 0, errors.BadRequest("REPORT_INVALID", "Invalid report format")
	}
	if quarterID == nil {
		return 0, errors.BadRequest("QUARTER_ID_REQUIRED", "quarterId为必填项")
	}
	return uc.repo.SaveReport(ctx, report, *quarterID)
}
