package main

import (
	"log"
	"os"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
	logsvc "github.com/mathvision/mdm/services/logger"
	"github.com/mathvision/mdm/storage/database"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:       db,
		conf:     conf,
		accSvc:   account.NewService(sqlxrepos.NewAccountRepository(db), nil, conf),
		classSvc: classroom.NewService(sqlxrepos.NewClassroomRepository(db)),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
