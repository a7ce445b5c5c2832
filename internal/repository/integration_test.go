//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/notify"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
	"github.com/Huzaifa785/rewear-backend/internal/service"
	"github.com/Huzaifa785/rewear-backend/pkg/database"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=rewear password=rewear_password dbname=rewear_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	// 使用正式迁移脚本建表，保证 CHECK 约束与部分唯一索引与生产一致
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupPGData 创建物主、申请人与一件物品，返回清理函数
func setupPGData(t *testing.T) (owner, requester *model.User, item *model.Item, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	suffix := time.Now().UnixNano()

	owner = &model.User{Username: fmt.Sprintf("owner%d", suffix), Email: fmt.Sprintf("owner%d@rewear.test", suffix), PasswordHash: "x", Role: "member", IsActive: true}
	requester = &model.User{Username: fmt.Sprintf("req%d", suffix), Email: fmt.Sprintf("req%d@rewear.test", suffix), PasswordHash: "x", Role: "member", IsActive: true}
	for _, u := range []*model.User{owner, requester} {
		if err := repo.User.Create(ctx, u); err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}

	item = &model.Item{OwnerID: owner.UserID, Title: "牛仔外套", PointsValue: 100, Status: model.ItemAvailable, IsActive: true}
	if err := repo.Item.Create(ctx, item); err != nil {
		t.Fatalf("创建物品失败: %v", err)
	}

	cleanup = func() {
		users := []string{owner.UserID, requester.UserID}
		testDB.Where("user_id IN ?", users).Delete(&model.PointTransaction{})
		testDB.Where("requester_id IN ? OR item_owner_id IN ?", users, users).Delete(&model.Swap{})
		testDB.Where("owner_id IN ?", users).Delete(&model.Item{})
		testDB.Where("user_id IN ?", users).Delete(&model.User{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// Test: 并发扣减不丢失更新、不透支
// ═══════════════════════════════════════════════════════════

func TestPG_ConcurrentDebit_NeverOverdraws(t *testing.T) {
	_, requester, _, cleanup := setupPGData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	if _, err := repo.User.ApplyCredit(ctx, requester.UserID, 50); err != nil {
		t.Fatalf("ApplyCredit 失败: %v", err)
	}

	var wg sync.WaitGroup
	var ok, rejected int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.User.ApplyDebit(ctx, requester.UserID, 10)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, pkgerrors.ErrConditionFailed):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("意外错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 5 || rejected != 5 {
		t.Errorf("期望成功 5 次、拒绝 5 次，得到 ok=%d rejected=%d", ok, rejected)
	}
	got, _ := repo.User.GetByID(ctx, requester.UserID)
	if got.PointsBalance != 0 {
		t.Errorf("期望余额 0，得到 %d", got.PointsBalance)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 行锁串行化同一物品的预留
// ═══════════════════════════════════════════════════════════

func TestPG_ConcurrentReserve_ExactlyOneWins(t *testing.T) {
	_, _, item, cleanup := setupPGData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Transaction(ctx, func(tx *repository.Repository) error {
				locked, err := tx.Item.GetByIDForUpdate(ctx, item.ItemID)
				if err != nil {
					return err
				}
				if locked.Status != model.ItemAvailable {
					return pkgerrors.ErrConditionFailed
				}
				return tx.Item.TransitionStatus(ctx, item.ItemID, model.ItemAvailable, model.ItemPendingSwap)
			})
			if err == nil {
				atomic.AddInt32(&wins, 1)
			} else if !errors.Is(err, pkgerrors.ErrConditionFailed) {
				t.Errorf("意外错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("期望恰好 1 次预留成功，得到 %d", wins)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 部分唯一索引与 CHECK 约束
// ═══════════════════════════════════════════════════════════

func TestPG_PendingUniqueIndex(t *testing.T) {
	owner, requester, item, cleanup := setupPGData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	points := 60
	newSwap := func() *model.Swap {
		return &model.Swap{
			RequesterID:   requester.UserID,
			ItemOwnerID:   owner.UserID,
			ItemID:        item.ItemID,
			SwapType:      model.SwapPointsRedemption,
			Status:        model.SwapPending,
			PointsOffered: &points,
			ExpiresAt:     time.Now().UTC().Add(model.SwapExpiryWindow),
		}
	}

	if err := repo.Swap.Create(ctx, newSwap()); err != nil {
		t.Fatalf("第一条 pending 应成功: %v", err)
	}
	if err := repo.Swap.Create(ctx, newSwap()); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("第二条 pending 应违反部分唯一索引，得到: %v", err)
	}
}

func TestPG_BalanceCheckConstraint(t *testing.T) {
	_, requester, _, cleanup := setupPGData(t)
	defer cleanup()

	err := testDB.Model(&model.User{}).
		Where("user_id = ?", requester.UserID).
		Update("points_balance", -1).Error
	if err == nil {
		t.Error("points_balance 为负数应违反 CHECK 约束")
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 交换服务在真实 PostgreSQL 上的结算
// ═══════════════════════════════════════════════════════════

func newPGSwapService() service.SwapService {
	return service.NewSwapService(
		repository.NewRepository(testDB),
		service.NewLedger(zap.NewNop()),
		notify.NotifierFunc(func(notify.Event) {}),
		nil,
		zap.NewNop(),
	)
}

func TestPG_Complete_LongItemTitle(t *testing.T) {
	owner, requester, _, cleanup := setupPGData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	title := strings.Repeat("衣", 200)
	item := &model.Item{OwnerID: owner.UserID, Title: title, PointsValue: 100, Status: model.ItemAvailable, IsActive: true}
	if err := repo.Item.Create(ctx, item); err != nil {
		t.Fatalf("创建 200 字标题物品失败: %v", err)
	}
	if _, err := repo.User.ApplyCredit(ctx, requester.UserID, 100); err != nil {
		t.Fatalf("ApplyCredit 失败: %v", err)
	}

	svc := newPGSwapService()
	points := 60
	created, err := svc.Create(ctx, requester.UserID, &dto.CreateSwapRequest{
		ItemID: item.ItemID, SwapType: "points_redemption", PointsOffered: &points,
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if _, err := svc.Accept(ctx, created.ID, owner.UserID, nil); err != nil {
		t.Fatalf("Accept 失败: %v", err)
	}
	if _, err := svc.Complete(ctx, created.ID, owner.UserID); err != nil {
		t.Fatalf("Complete 失败: %v", err)
	}

	var rows []model.PointTransaction
	if err := testDB.Where("swap_id = ?", created.ID).Find(&rows).Error; err != nil {
		t.Fatalf("查询流水失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望 2 条结算流水，得到 %d", len(rows))
	}
	for _, row := range rows {
		if !strings.Contains(row.Description, title) {
			t.Errorf("流水描述应包含完整标题，得到 %d 字符", len([]rune(row.Description)))
		}
	}
}

func TestPG_MalformedID_NotFound(t *testing.T) {
	_, requester, _, cleanup := setupPGData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	if _, err := repo.Swap.GetByID(ctx, "not-a-uuid"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Swap.GetByID 期望 ErrRecordNotFound，得到: %v", err)
	}
	if _, err := repo.Swap.GetView(ctx, "not-a-uuid"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Swap.GetView 期望 ErrRecordNotFound，得到: %v", err)
	}
	if _, err := newPGSwapService().Cancel(ctx, "not-a-uuid", requester.UserID); !errors.Is(err, service.ErrSwapNotFound) {
		t.Errorf("Cancel 期望 ErrSwapNotFound，得到: %v", err)
	}
}

func TestPG_DirectSwap_FirstAwardFails_SecondStillRuns(t *testing.T) {
	owner, requester, target, cleanup := setupPGData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	offered := &model.Item{OwnerID: requester.UserID, Title: "帆布包", PointsValue: 40, Status: model.ItemAvailable, IsActive: true}
	if err := repo.Item.Create(ctx, offered); err != nil {
		t.Fatalf("创建报价物品失败: %v", err)
	}

	svc := newPGSwapService()
	created, err := svc.Create(ctx, requester.UserID, &dto.CreateSwapRequest{
		ItemID: target.ItemID, SwapType: "direct_swap", OfferedItemID: &offered.ItemID,
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if _, err := svc.Accept(ctx, created.ID, owner.UserID, nil); err != nil {
		t.Fatalf("Accept 失败: %v", err)
	}

	// 累计获得积分已达 INTEGER 上限，申请人入账触发数值溢出
	if err := testDB.Model(&model.User{}).Where("user_id = ?", requester.UserID).
		Update("total_points_earned", 2147483647).Error; err != nil {
		t.Fatalf("设置累计积分失败: %v", err)
	}

	_, err = svc.Complete(ctx, created.ID, owner.UserID)
	if err == nil {
		t.Fatal("申请人入账溢出，Complete 应失败")
	}
	msg := err.Error()
	if !strings.Contains(msg, requester.UserID) {
		t.Errorf("错误应包含申请人的入账失败，得到: %v", err)
	}
	if strings.Contains(msg, owner.UserID) || strings.Contains(msg, "25P02") {
		t.Errorf("物主入账不应因事务中止而失败，得到: %v", err)
	}

	got, _ := repo.User.GetByID(ctx, owner.UserID)
	if got.PointsBalance != 0 {
		t.Errorf("整体回滚后物主余额应为 0，得到 %d", got.PointsBalance)
	}
	sw, _ := repo.Swap.GetByID(ctx, created.ID)
	if sw.Status != model.SwapAccepted {
		t.Errorf("整体回滚后交换应保持 accepted，得到 %s", sw.Status)
	}
}
