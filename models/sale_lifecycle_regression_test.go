package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/models"
	"github.com/clodeb/retail_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func integrationContext(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "retail_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleAdmin))
	return ctx
}

func seedTenant(t *testing.T, ctx context.Context) (context.Context, *models.Store, *models.Store) {
	t.Helper()
	db := config.GetDB()

	tenant := models.Tenant{
		ID:       uuid.NewString(),
		Name:     fmt.Sprintf("Test Tenant %d", time.Now().UnixNano()),
		Slug:     fmt.Sprintf("test-%d", time.Now().UnixNano()),
		Currency: "ARS",
		Active:   utils.NewTrue(),
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	ctx = utils.SetTenantIdInContext(ctx, tenant.ID)

	central, err := models.CreateStore(ctx, &models.NewStore{Name: "Central"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	branch, err := models.CreateStore(ctx, &models.NewStore{Name: "Branch"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	return ctx, central, branch
}

func seedAccessory(t *testing.T, ctx context.Context, storeId int, name string, stock int, price int64) *models.Product {
	t.Helper()
	product, err := models.CreateProduct(ctx, &models.NewProduct{
		StoreId:  storeId,
		Name:     name,
		Category: models.ProductCategoryAccessory,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", name, err)
	}
	return product
}

func reloadProduct(t *testing.T, ctx context.Context, id int) *models.Product {
	t.Helper()
	var product models.Product
	if err := config.GetDB().WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		t.Fatalf("reload product %d: %v", id, err)
	}
	return &product
}

func TestSaleDecrementsAndCancelRestores(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	funda := seedAccessory(t, ctx, central.ID, "Funda Silicona", 5, 9500)

	sale, err := models.CreateSale(ctx, &models.NewSale{
		StoreId:       central.ID,
		Total:         decimal.NewFromInt(19000),
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewSaleItem{
			{ProductId: funda.ID, Quantity: 2, Price: decimal.NewFromInt(9500)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	after := reloadProduct(t, ctx, funda.ID)
	if after.Stock != 3 {
		t.Fatalf("stock after sale = %d, want 3", after.Stock)
	}
	if !utils.DereferencePtr(after.Active) {
		t.Fatalf("fungible product with stock left was deactivated")
	}

	if err := models.CancelSale(ctx, sale.ID); err != nil {
		t.Fatalf("CancelSale: %v", err)
	}

	restored := reloadProduct(t, ctx, funda.ID)
	if restored.Stock != 5 {
		t.Fatalf("stock after cancel = %d, want 5", restored.Stock)
	}
	if !utils.DereferencePtr(restored.Active) {
		t.Fatalf("product not reactivated on cancel")
	}

	// the sale is gone, the audit entry committed with the cancellation
	if _, err := models.GetSale(ctx, sale.ID); err == nil {
		t.Fatalf("sale still readable after cancel")
	}
	var count int64
	err = config.GetDB().WithContext(ctx).Model(&models.AuditLog{}).
		Where("action = ? AND entity_id = ?", models.AuditActionCancelSale, sale.ID).
		Count(&count).Error
	if err != nil || count != 1 {
		t.Fatalf("cancel audit entries = %d (err=%v), want 1", count, err)
	}
}

func TestSaleDeactivatesFungibleAtZero(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	cable := seedAccessory(t, ctx, central.ID, "Cable USB-C", 2, 5000)

	_, err := models.CreateSale(ctx, &models.NewSale{
		StoreId:       central.ID,
		Total:         decimal.NewFromInt(10000),
		PaymentMethod: models.PaymentMethodCard,
		Items: []models.NewSaleItem{
			{ProductId: cable.ID, Quantity: 2, Price: decimal.NewFromInt(5000)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	after := reloadProduct(t, ctx, cable.ID)
	if after.Stock != 0 {
		t.Fatalf("stock = %d, want 0", after.Stock)
	}
	if utils.DereferencePtr(after.Active) {
		t.Fatalf("fungible product at zero stock still active")
	}

	// selling again must fail with the shortfall
	_, err = models.CreateSale(ctx, &models.NewSale{
		StoreId:       central.ID,
		Total:         decimal.NewFromInt(5000),
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewSaleItem{
			{ProductId: cable.ID, Quantity: 1, Price: decimal.NewFromInt(5000)},
		},
	})
	if err == nil {
		t.Fatalf("oversell succeeded")
	}
}

func TestSaleResolvesAccessoryFromSellingStore(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, branch := seedTenant(t, ctx)

	centralRow := seedAccessory(t, ctx, central.ID, "Funda Silicona", 4, 9500)
	branchRow := seedAccessory(t, ctx, branch.ID, "Funda Silicona", 4, 9500)

	// sale happens in the branch but references the central row
	_, err := models.CreateSale(ctx, &models.NewSale{
		StoreId:       branch.ID,
		Total:         decimal.NewFromInt(9500),
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewSaleItem{
			{ProductId: centralRow.ID, Quantity: 1, Price: decimal.NewFromInt(9500)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if got := reloadProduct(t, ctx, branchRow.ID).Stock; got != 3 {
		t.Fatalf("branch stock = %d, want 3 (fulfilled from selling store)", got)
	}
	if got := reloadProduct(t, ctx, centralRow.ID).Stock; got != 4 {
		t.Fatalf("central stock = %d, want 4 (untouched)", got)
	}
}

func TestSerializedSaleDeactivatesUnit(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	imei := "490154203237518"
	phone, err := models.CreateProduct(ctx, &models.NewProduct{
		StoreId:  central.ID,
		Name:     "iPhone 13 128GB",
		Imei:     &imei,
		Category: models.ProductCategoryPhone,
		Price:    decimal.NewFromInt(620),
		Stock:    1,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	_, err = models.CreateSale(ctx, &models.NewSale{
		StoreId:       central.ID,
		Total:         decimal.NewFromInt(620),
		PaymentMethod: models.PaymentMethodTransfer,
		Items: []models.NewSaleItem{
			{ProductId: phone.ID, Quantity: 1, Price: decimal.NewFromInt(620)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	after := reloadProduct(t, ctx, phone.ID)
	if after.Stock != 0 || utils.DereferencePtr(after.Active) {
		t.Fatalf("serialized unit after sale: stock=%d active=%v, want 0/false", after.Stock, utils.DereferencePtr(after.Active))
	}
}

func TestConcurrentSalesOfLastUnit(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	cargador := seedAccessory(t, ctx, central.ID, "Cargador 20W", 1, 12000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = models.CreateSale(ctx, &models.NewSale{
				StoreId:       central.ID,
				Total:         decimal.NewFromInt(12000),
				PaymentMethod: models.PaymentMethodCash,
				Items: []models.NewSaleItem{
					{ProductId: cargador.ID, Quantity: 1, Price: decimal.NewFromInt(12000)},
				},
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var insufficient *utils.InsufficientStockError
		var conflict *utils.ConflictError
		if !errors.As(err, &insufficient) && !errors.As(err, &conflict) {
			t.Fatalf("losing sale returned unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("concurrent sales of the last unit: %d succeeded, want exactly 1", successes)
	}

	after := reloadProduct(t, ctx, cargador.ID)
	if after.Stock != 0 || after.Reserved != 0 {
		t.Fatalf("ledger after concurrent sales: stock=%d reserved=%d, want 0/0", after.Stock, after.Reserved)
	}
}

func TestFailedSaleLeavesLedgerUntouched(t *testing.T) {
	ctx := integrationContext(t)
	ctx, central, _ := seedTenant(t, ctx)

	funda := seedAccessory(t, ctx, central.ID, "Funda Rigida", 3, 8000)

	// a line pointing at a nonexistent product rejects the whole sale
	_, err := models.CreateSale(ctx, &models.NewSale{
		StoreId:       central.ID,
		Total:         decimal.NewFromInt(16000),
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewSaleItem{
			{ProductId: funda.ID, Quantity: 1, Price: decimal.NewFromInt(8000)},
			{ProductId: 999999, Quantity: 1, Price: decimal.NewFromInt(8000)},
		},
	})
	var notFound *utils.NotFoundError
	if err == nil || !errors.As(err, &notFound) {
		t.Fatalf("sale with unknown product line: err=%v, want NotFoundError", err)
	}

	// duplicate lines pass the advisory per-line check but oversell inside
	// the transaction; the first line's decrement must roll back with it
	_, err = models.CreateSale(ctx, &models.NewSale{
		StoreId:       central.ID,
		Total:         decimal.NewFromInt(32000),
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.NewSaleItem{
			{ProductId: funda.ID, Quantity: 2, Price: decimal.NewFromInt(8000)},
			{ProductId: funda.ID, Quantity: 2, Price: decimal.NewFromInt(8000)},
		},
	})
	var insufficient *utils.InsufficientStockError
	if err == nil || !errors.As(err, &insufficient) {
		t.Fatalf("overselling duplicate lines: err=%v, want InsufficientStockError", err)
	}

	after := reloadProduct(t, ctx, funda.ID)
	if after.Stock != 3 || after.Reserved != 0 || !utils.DereferencePtr(after.Active) {
		t.Fatalf("ledger after failed sales: stock=%d reserved=%d active=%v, want 3/0/true",
			after.Stock, after.Reserved, utils.DereferencePtr(after.Active))
	}

	var saleCount int64
	if err := config.GetDB().WithContext(ctx).Model(&models.Sale{}).Count(&saleCount).Error; err != nil || saleCount != 0 {
		t.Fatalf("sales persisted by failed attempts = %d (err=%v), want 0", saleCount, err)
	}
	var itemCount int64
	if err := config.GetDB().WithContext(ctx).Model(&models.SaleItem{}).
		Where("product_id = ?", funda.ID).Count(&itemCount).Error; err != nil || itemCount != 0 {
		t.Fatalf("sale items persisted by failed attempts = %d (err=%v), want 0", itemCount, err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retail-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retail-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=retail_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
