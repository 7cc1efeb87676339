package models

import (
	"log"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Store{}, &User{},
		&CashPool{}, &CashPoolTransaction{},
		&DenominationCount{}, &DenominationCountDetail{},
		&CashTransfer{}, &CashAdjustment{},
		&Sale{}, &Expense{}, &SaleReturn{}, &HandBill{}, &GiftVoucher{}, &SalesOrder{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
