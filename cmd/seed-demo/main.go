// seed-demo creates a demo tenant with two stores, an admin and a seller
// user, a few clients and a starting inventory. Intended for local
// development and review environments.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/clodeb/retail_backend/config"
	"github.com/clodeb/retail_backend/models"
	"github.com/clodeb/retail_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	tenantName    = "Clodeb"
	adminEmail    = "admin@clodeb.test"
	adminPassword = "admin1234"
	sellerEmail   = "seller@clodeb.test"
	sellerPass    = "seller1234"
)

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fatalf("database not initialized (config.GetDB returned nil). Set DB_* env vars.")
	}
	models.MigrateTable()

	var tenant models.Tenant
	err := db.Where("name = ?", tenantName).First(&tenant).Error
	if err != nil {
		tenant = models.Tenant{
			ID:       uuid.NewString(),
			Name:     tenantName,
			Slug:     "clodeb",
			Currency: "ARS",
			Plan:     "BASIC",
			Active:   utils.NewTrue(),
		}
		if err := db.Create(&tenant).Error; err != nil {
			fatalf("failed to create tenant: %v", err)
		}
	}

	ctx = utils.SetTenantIdInContext(ctx, tenant.ID)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleAdmin))

	central, err := models.CreateStore(ctx, &models.NewStore{Name: "Casa Central", Address: "Av. Siempreviva 742"})
	if err != nil {
		fatalf("failed to create store: %v", err)
	}
	branch, err := models.CreateStore(ctx, &models.NewStore{Name: "Sucursal Norte", Address: "Calle 9 de Julio 120"})
	if err != nil {
		fatalf("failed to create store: %v", err)
	}

	if _, err := models.CreateUser(ctx, &models.NewUser{
		Name: "Demo Admin", Email: adminEmail, Password: adminPassword, Role: models.UserRoleAdmin,
	}); err != nil {
		fatalf("failed to create admin user: %v", err)
	}
	if _, err := models.CreateUser(ctx, &models.NewUser{
		StoreId: &branch.ID,
		Name:    "Demo Seller", Email: sellerEmail, Password: sellerPass, Role: models.UserRoleSeller,
	}); err != nil {
		fatalf("failed to create seller user: %v", err)
	}

	for _, c := range []models.NewClient{
		{Name: "Juan Perez", Phone: "+5491130000001"},
		{Name: "Maria Gomez", Phone: "+5491130000002"},
	} {
		if _, err := models.CreateClient(ctx, &c); err != nil {
			fatalf("failed to create client: %v", err)
		}
	}

	imei1 := "490154203237518"
	phones := []models.NewProduct{
		{StoreId: central.ID, Name: "iPhone 13 128GB", Model: "iPhone 13", Storage: "128GB", Color: "Midnight",
			Imei: &imei1, Battery: 87, Condition: "USED", Category: models.ProductCategoryPhone,
			Price: decimal.NewFromInt(620), Cost: decimal.NewFromInt(480), Stock: 1},
	}
	accessories := []models.NewProduct{
		{StoreId: central.ID, Name: "Funda Silicona iPhone 13", Category: models.ProductCategoryAccessory,
			Price: decimal.NewFromInt(9500), Cost: decimal.NewFromInt(4000), Stock: 12},
		{StoreId: branch.ID, Name: "Funda Silicona iPhone 13", Category: models.ProductCategoryAccessory,
			Price: decimal.NewFromInt(9500), Cost: decimal.NewFromInt(4000), Stock: 5},
		{StoreId: central.ID, Name: "Cargador 20W USB-C", Category: models.ProductCategoryAccessory,
			Price: decimal.NewFromInt(18000), Cost: decimal.NewFromInt(9000), Stock: 8},
	}
	for _, p := range append(phones, accessories...) {
		if _, err := models.CreateProduct(ctx, &p); err != nil {
			fatalf("failed to create product %q: %v", p.Name, err)
		}
	}

	fmt.Printf("seeded tenant %s (%s)\n", tenant.Name, tenant.ID)
	fmt.Printf("admin login: %s / %s\n", adminEmail, adminPassword)
}
