package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/smms/canteen-services/configs"
	"github.com/smms/canteen-services/internal/canteensvc/db"
	"github.com/smms/canteen-services/internal/canteensvc/store"
	"github.com/smms/canteen-services/internal/comm"
	natscli "github.com/smms/canteen-services/internal/nats"
	"github.com/smms/canteen-services/internal/notifysvc/dispatcher"
)

const SERVICE_NAME = "notify"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	st := store.NewPostgres(dbpool)

	// Connect to NATS
	n, err := natscli.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	d := dispatcher.New(st,
		dispatcher.NewPushSender(n.Conn),
		dispatcher.NewEmailSender(),
	)
	if v := os.Getenv("NOTIFY_MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			d.MaxRetries = retries
		}
	}
	if v := os.Getenv("NOTIFY_POLL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			d.Interval = time.Duration(secs) * time.Second
		}
	}

	// wake on new pending notifications
	sub, err := n.Conn.Subscribe(comm.TopicNotifyCreated, func(_ *nats.Msg) { d.Wake() })
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", comm.TopicNotifyCreated, err)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go d.Run(ctx)
	log.Infof("%s service running, poll interval %s, max retries %d", SERVICE_NAME, d.Interval, d.MaxRetries)

	// Wait for interrupt signal to gracefully shutdown the worker
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()
	cancel()

	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
