package main

import (
	"os"

	"github.com/packshelf/packshelf/internal/cli"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if os.Getenv("PACKSHELF_DEBUG") != "" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
