package models

import (
	"log"

	"github.com/clodeb/retail_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Tenant{}, &Store{}, &User{}, &Client{},
		&Product{},
		&Sale{}, &SaleItem{},
		&Appointment{},
		&AuditLog{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
