package models

import (
	"log"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&CableRecord{},
		&DailyReport{}, &DailyLink{},
		&ImportRun{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
