package consumer

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"signalconsumer/src/connectors"
	"signalconsumer/src/database"
	"signalconsumer/src/dedup"
	"signalconsumer/src/exchange"
	"signalconsumer/src/executor"
	"signalconsumer/src/feed"
	"signalconsumer/src/model"
	"signalconsumer/src/notify"
	"signalconsumer/src/repository"
	"signalconsumer/src/resolver"
	"signalconsumer/src/security"
	"signalconsumer/src/server"
)

// Consumer wires the signal feed to the executor and runs until SIGINT or
// SIGTERM.
type Consumer struct{}

func (c *Consumer) Start() error {
	config := GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	secCfg := security.GetConfig()

	exchCfg := connectors.GetConfig()
	var err error
	if exchCfg.APIKey, err = security.DecryptString(exchCfg.APIKey, secCfg.MasterKey); err != nil {
		logrus.WithError(err).Fatal("Failed to decrypt exchange API key")
		return err
	}
	if exchCfg.APISecret, err = security.DecryptString(exchCfg.APISecret, secCfg.MasterKey); err != nil {
		logrus.WithError(err).Fatal("Failed to decrypt exchange API secret")
		return err
	}

	client := connectors.NewClient(exchCfg)
	adapter := exchange.NewAdapter(client, exchange.GetConfig())
	symbols := resolver.NewResolver(client)

	execCfg := executor.GetConfig()
	ledger := dedup.NewLedger(execCfg.DedupWindow)
	records := repository.NewExecutionRecordRepository()

	var notifier executor.Notifier = notify.Noop{}
	notifyCfg := notify.GetConfig()
	if notifyCfg.Enabled {
		if notifyCfg.BotToken, err = security.DecryptString(notifyCfg.BotToken, secCfg.MasterKey); err != nil {
			logrus.WithError(err).Fatal("Failed to decrypt Telegram bot token")
			return err
		}
		notifier = notify.NewTelegram(notifyCfg)
	}

	exec := executor.NewExecutor(adapter, symbols, ledger, notifier, records, execCfg)

	if config.ServerEnabled {
		go server.StartServer(ctx, server.GetConfig().Port, records)
	}

	signals := make(chan *model.TradingSignal, config.SignalBuffer)
	go feed.NewStream(feed.GetConfig()).Run(ctx, signals)

	logrus.Info("Signal consumer started")
	for sig := range signals {
		if _, err := exec.Execute(ctx, sig); err != nil {
			logrus.WithError(err).WithField("symbol", sig.Symbol).Error("Signal execution failed")
		}
	}

	logrus.Info("Signal feed closed, consumer stopping")
	return nil
}
