package biz

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

type mockReportRepo struct {
	quarters      []*Quarter
	latestReport  *ReportRecord
	savedReport   []byte
	savedQuarter  int
	createdID     string
	createErr     error
	latestReqID   *int
	latestReqSeen bool
}

func (m *mockReportRepo) ListQuarters(ctx context.Context) ([]*Quarter, error) {
	return m.quarters, nil
}

func (m *mockReportRepo) LatestQuarter(ctx context.Context) (*Quarter, error) {
	if len(m.quarters) == 0 {
		return nil, nil
	}
	return m.quarters[0], nil
}

func (m *mockReportRepo) CreateQuarter(ctx context.Context, quarterID string) (*Quarter, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdID = quarterID
	return &Quarter{ID: 1, QuarterID: quarterID}, nil
}

func (m *mockReportRepo) LatestReport(ctx context.Context, quarterID *int) (*ReportRecord, error) {
	m.latestReqSeen = true
	m.latestReqID = quarterID
	return m.latestReport, nil
}

func (m *mockReportRepo) SaveReport(ctx context.Context, reportJSON []byte, quarterID int) (int, error) {
	m.savedReport = reportJSON
	m.savedQuarter = quarterID
	return 42, nil
}

func newTestUseCase(repo ReportRepo) *ReportUseCase {
	return NewReportUseCase(repo, log.NewStdLogger(testWriter{}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestCreateQuarterValidation(t *testing.T) {
	repo := &mockReportRepo{}
	uc := newTestUseCase(repo)

	for _, id := range []string{"2024Q1", "2025Q4", "1999Q2"} {
		if _, err := uc.CreateQuarter(context.Background(), id); err != nil {
			t.Fatalf("CreateQuarter(%q): %v", id, err)
		}
		if repo.createdID != id {
			t.Fatalf("期望落库 %q, 实际 %q", id, repo.createdID)
		}
	}

	for _, id := range []string{"2024Q5", "2024Q0", "24Q1", "2024-Q1", "2024q1", "2024Q11"} {
		_, err := uc.CreateQuarter(context.Background(), id)
		if !errors.IsBadRequest(err) {
			t.Fatalf("CreateQuarter(%q): 期望 BadRequest, 实际 %v", id, err)
		}
	}
}

func TestCreateQuarterEmpty(t *testing.T) {
	uc := newTestUseCase(&mockReportRepo{})

	_, err := uc.CreateQuarter(context.Background(), "")
	if !errors.IsBadRequest(err) {
		t.Fatalf("期望 BadRequest, 实际 %v", err)
	}
	if got := errors.FromError(err).Message; got != "季度ID为必填项" {
		t.Fatalf("错误消息不符: %q", got)
	}
}

func TestCreateQuarterConflictPassthrough(t *testing.T) {
	conflict := errors.Conflict("QUARTER_EXISTS", "该季度已存在")
	uc := newTestUseCase(&mockReportRepo{createErr: conflict})

	_, err := uc.CreateQuarter(context.Background(), "2024Q1")
	if !errors.IsConflict(err) {
		t.Fatalf("期望 Conflict, 实际 %v", err)
	}
}

func TestSaveReportValidation(t *testing.T) {
	repo := &mockReportRepo{}
	uc := newTestUseCase(repo)
	quarter := 3

	for _, payload := range []string{``, `null`, `{"title":"x"}`, `"text"`, `not json`} {
		_, err := uc.SaveReport(context.Background(), json.RawMessage(payload), &quarter)
		if !errors.IsBadRequest(err) {
			t.Fatalf("SaveReport(%q): 期望 BadRequest, 实际 %v", payload, err)
		}
	}

	report := json.RawMessage(`[{"title":"GDP","content":["增速回升"],"charts":[]}]`)
	if _, err := uc.SaveReport(context.Background(), report, nil); !errors.IsBadRequest(err) {
		t.Fatal("缺少季度时应报 BadRequest")
	}

	id, err := uc.SaveReport(context.Background(), report, &quarter)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if id != 42 || repo.savedQuarter != 3 {
		t.Fatalf("落库结果不符: id=%d quarter=%d", id, repo.savedQuarter)
	}
	if string(repo.savedReport) != string(report) {
		t.Fatal("应原样落库报告 JSON")
	}
}

func TestGetLatestReportResolvesQuarter(t *testing.T) {
	repo := &mockReportRepo{
		quarters:     []*Quarter{{ID: 7, QuarterID: "2025Q2"}, {ID: 5, QuarterID: "2025Q1"}},
		latestReport: &ReportRecord{ID: 9, Report: json.RawMessage(`[]`)},
	}
	uc := newTestUseCase(repo)

	latest, err := uc.GetLatestReport(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetLatestReport: %v", err)
	}
	if latest.QuarterID == nil || *latest.QuarterID != 7 {
		t.Fatalf("应解析到最新季度 7, 实际 %v", latest.QuarterID)
	}
	if repo.latestReqID == nil || *repo.latestReqID != 7 {
		t.Fatal("仓储查询未带上解析出的季度")
	}
	if latest.Record == nil || latest.Record.ID != 9 {
		t.Fatal("未返回报告记录")
	}
}

func TestGetLatestReportNoQuarters(t *testing.T) {
	repo := &mockReportRepo{}
	uc := newTestUseCase(repo)

	latest, err := uc.GetLatestReport(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetLatestReport: %v", err)
	}
	if latest.QuarterID != nil || latest.Record != nil {
		t.Fatal("没有季度时应返回空结果")
	}
	if !repo.latestReqSeen {
		t.Fatal("仍应尝试查询全局最新报告")
	}
}

func TestGetLatestReportExplicitQuarter(t *testing.T) {
	repo := &mockReportRepo{quarters: []*Quarter{{ID: 7, QuarterID: "2025Q2"}}}
	uc := newTestUseCase(repo)
	want := 5

	latest, err := uc.GetLatestReport(context.Background(), &want)
	if err != nil {
		t.Fatalf("GetLatestReport: %v", err)
	}
	if latest.QuarterID == nil || *latest.QuarterID != 5 {
		t.Fatal("显式指定的季度不应被覆盖")
	}
	if repo.latestReqID == nil || *repo.latestReqID != 5 {
		t.Fatal("仓储查询季度不符")
	}
}
