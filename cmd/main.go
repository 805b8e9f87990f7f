package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"signalconsumer/cmd/consumer"
	"signalconsumer/cmd/keys"
	"signalconsumer/cmd/pricecheck"
)

var Version string

func setupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	setupLogger()

	app := cli.NewApp()
	app.Name = "Signal Consumer CMD"
	app.Usage = "The signal consumer command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		consumerCMD,
		keysCMD,
		priceCheckCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	consumerCMD = cli.Command{
		Name:        "consumer",
		Usage:       "run the signal consumer",
		Action:      consumerAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Consume trading signals from the feed and execute them`,
	}
	keysCMD = cli.Command{
		Name:        "keys",
		Usage:       "manage encrypted credentials",
		Action:      keysAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Interactive CLI for wrapping secrets as ENC[...] values`,
	}
	priceCheckCMD = cli.Command{
		Name:        "pricecheck",
		Usage:       "compare venue price against Binance spot",
		Action:      priceCheckAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Sanity-check one market against an external reference price`,
	}
)

func consumerAction(_ *cli.Context) error {
	logrus.Info("Starting consumer CMD")

	c := &consumer.Consumer{}
	if err := c.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func keysAction(_ *cli.Context) error {
	logrus.Info("Starting keys CMD")

	k := &keys.Keys{}
	if err := k.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func priceCheckAction(_ *cli.Context) error {
	logrus.Info("Starting pricecheck CMD")

	p := &pricecheck.PriceCheck{
		Log: logrus.WithField("cmd", "pricecheck"),
	}
	if err := p.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
