package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

const (
	// calendarSwapLimit 日历订阅最多包含的待处理交换数
	calendarSwapLimit = 500
	// calendarEventDuration 日历事件时长（以过期时刻为起点）
	calendarEventDuration = 30 * time.Minute
)

// ExportService 导出业务接口
//
//   - 积分流水导出为 Excel (.xlsx)，按时间正序，末行为合计
//   - 待处理交换导出为 iCalendar (.ics)，每个请求在其 expires_at 处生成一个事件并提前 1 小时提醒
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入。
type ExportService interface {
	ExportPointTransactions(ctx context.Context, userID string) (*bytes.Buffer, string, error)
	ExportSwapCalendar(ctx context.Context, userID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	baseURL string
	now     Clock
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例；baseURL 用于日历事件中的交换链接
func NewExportService(repo *repository.Repository, baseURL string, now Clock, logger *zap.Logger) ExportService {
	if now == nil {
		now = SystemClock
	}
	return &exportService{repo: repo, baseURL: baseURL, now: now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportPointTransactions — 积分流水 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "积分流水"
//   - 第 1 行标题，第 2 行表头：时间 | 类型 | 变动 | 余额 | 说明 | 关联交换
//   - 末行：合计变动与当前余额

func (s *exportService) ExportPointTransactions(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 查询全部流水（正序）
	rows, err := s.repo.PointTransaction.ListAllByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询积分流水失败", zap.Error(err))
		return nil, "", err
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "积分流水"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "B", "B", 18)
	f.SetColWidth(sheetName, "C", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 36)
	f.SetColWidth(sheetName, "F", "F", 38)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 的积分流水", user.Username))
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"时间", "类型", "变动", "余额", "说明", "关联交换"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "F2", headerStyle)

	// 数据行
	row := 3
	sum := 0
	for _, t := range rows {
		f.SetCellValue(sheetName, cell("A", row), t.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, cell("B", row), transactionTypeLabel(t.TransactionType))
		f.SetCellValue(sheetName, cell("C", row), t.Amount)
		f.SetCellValue(sheetName, cell("D", row), t.BalanceAfter)
		f.SetCellValue(sheetName, cell("E", row), t.Description)
		if t.SwapID != nil {
			f.SetCellValue(sheetName, cell("F", row), *t.SwapID)
		} else {
			f.SetCellValue(sheetName, cell("F", row), "-")
		}
		sum += t.Amount
		row++
	}

	// 合计行
	f.SetCellValue(sheetName, cell("B", row), "合计")
	f.SetCellValue(sheetName, cell("C", row), sum)
	f.SetCellValue(sheetName, cell("D", row), user.PointsBalance)

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("积分流水_%s_%s.xlsx", user.Username, s.now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportSwapCalendar — 待处理交换的过期日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportSwapCalendar(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	now := s.now()

	// 先惰性过期，避免把已逾期的请求写进日历
	if _, err := s.repo.Swap.ExpireOverdue(ctx, repository.OverdueFilter{UserID: userID}, now); err != nil {
		s.logger.Error("惰性过期失败", zap.Error(err))
		return nil, "", err
	}

	pending := model.SwapPending
	views, _, err := s.repo.Swap.List(ctx, repository.SwapListFilter{
		UserID: userID,
		Box:    repository.SwapBoxAll,
		Status: &pending,
	}, 0, calendarSwapLimit)
	if err != nil {
		s.logger.Error("查询待处理交换失败", zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ReWear//Swap Expiry//ZH")
	cal.SetXWRCalName("ReWear 待处理交换")

	for _, v := range views {
		ev := cal.AddEvent(v.SwapID + "@rewear")
		ev.SetDtStampTime(now)
		ev.SetCreatedTime(v.CreatedAt)
		ev.SetStartAt(v.ExpiresAt)
		ev.SetEndAt(v.ExpiresAt.Add(calendarEventDuration))

		if v.RequesterID == userID {
			ev.SetSummary(fmt.Sprintf("交换请求即将过期：「%s」（发给 %s）", v.ItemTitle, v.OwnerUsername))
		} else {
			ev.SetSummary(fmt.Sprintf("待回复的交换请求：「%s」（来自 %s）", v.ItemTitle, v.RequesterUsername))
		}
		ev.SetDescription(swapEventDescription(&v))
		if s.baseURL != "" {
			ev.SetURL(fmt.Sprintf("%s/swaps/%s", s.baseURL, v.SwapID))
		}

		alarm := ev.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger("-PT1H")
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "rewear-swaps.ics", nil
}

func swapEventDescription(v *repository.SwapView) string {
	switch v.SwapType {
	case model.SwapPointsRedemption:
		return fmt.Sprintf("积分兑换，报价 %d 积分", v.OfferedPoints())
	case model.SwapDirect:
		return fmt.Sprintf("以物换物，报价物品「%s」", v.OfferedItemTitle)
	}
	return v.SwapType.String()
}

func transactionTypeLabel(t model.TransactionType) string {
	switch t {
	case model.TxSignupBonus:
		return "注册奖励"
	case model.TxItemListed:
		return "发布物品"
	case model.TxSwapCompleted:
		return "完成交换"
	case model.TxPointsRedemption:
		return "积分兑换"
	case model.TxPointsReceived:
		return "兑换收入"
	case model.TxAdjustment:
		return "管理员调整"
	}
	return string(t)
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
