/*
Copyright 2016 The sbctgt Authors All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gostor/sbctgt/pkg/config"
	"github.com/gostor/sbctgt/pkg/task"
)

func newServeCommand() *cobra.Command {
	var logLevel string
	var configDir string
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "Open every configured target's block device and block",
		Long:  `Reads the target configuration, opens each target's block device (single leaf or striped), and blocks until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configDir, logLevel)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&logLevel, "log", "info", "Log level")
	flags.StringVar(&configDir, "config", "", "Configuration directory (defaults to the platform config dir)")
	return cmd
}

func serve(configDir, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unknown log level: %v", level)
	}
	log.SetLevel(lvl)

	cfg, err := config.Load(configDir)
	if err != nil {
		log.Error(err)
		return err
	}
	if len(cfg.Targets) == 0 {
		log.Warn("no targets configured")
	}

	dispatchers := make(map[string]*task.Dispatcher, len(cfg.Targets))
	for name, tgt := range cfg.Targets {
		dev, err := tgt.BuildDevice()
		if err != nil {
			log.Error(err)
			return err
		}
		if err := dev.Open(); err != nil {
			log.WithField("target", name).Error(err)
			return err
		}
		dispatchers[name] = task.NewDispatcher(dev)
		log.WithField("target", name).Infof("opened %s", dev.Name())
	}
	defer func() {
		for name, d := range dispatchers {
			if err := d.Device.Close(); err != nil {
				log.WithField("target", name).Error(err)
				continue
			}
			log.WithField("target", name).Info("closed")
		}
	}()

	// The real iSCSI PDU listener that would feed Command values into
	// these dispatchers is an external collaborator (spec §1); serve
	// only owns the open/close lifecycle of the targets it configures.

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	return nil
}
