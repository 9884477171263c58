package models

import (
	"log"

	"github.com/shavivco/backoffice_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Firm{},
		&Group{}, &Client{}, &ContactPerson{},
		&FeeCalculation{},
		&GeneratedLetter{},
		&Ticket{},
		&CapitalDeclaration{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
