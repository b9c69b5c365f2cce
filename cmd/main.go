/*
Copyright 2025 Ledgerkeep Authors.

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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep"
	"github.com/ledgerkeep/ledgerkeep/config"
	"github.com/ledgerkeep/ledgerkeep/database"
)

// Ledgerkeep represents the CLI application, encapsulating the root Cobra command.
type Ledgerkeep struct {
	cmd *cobra.Command
}

// ledgerkeepInstance holds the runtime service instance and its
// configuration, shared by every subcommand.
type ledgerkeepInstance struct {
	engine *ledgerkeep.Ledgerkeep
	cnf    *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the engine before any
// subcommand executes.
func preRun(app *ledgerkeepInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("ledgerkeep.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		engine, err := setupLedgerkeep(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.engine = engine
		app.cnf = cnf

		return nil
	}
}

// setupLedgerkeep connects the datasource and constructs the engine.
func setupLedgerkeep(cfg *config.Configuration) (*ledgerkeep.Ledgerkeep, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := ledgerkeep.NewLedgerkeep(db)
	if err != nil {
		return nil, fmt.Errorf("error creating ledgerkeep: %v", err)
	}
	return engine, nil
}

// NewCLI creates the command-line interface for the reconciliation engine.
func NewCLI() *Ledgerkeep {
	var configFile string
	l := &ledgerkeepInstance{}

	var rootCmd = &cobra.Command{
		Use:   "ledgerkeep",
		Short: "Bank statement reconciliation engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./ledgerkeep.json", "Configuration file for the reconciliation engine")

	rootCmd.PersistentPreRunE = preRun(l)

	rootCmd.AddCommand(serverCommands(l))

	return &Ledgerkeep{cmd: rootCmd}
}

// executeCLI runs the root command and reports any execution error.
func (w Ledgerkeep) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
