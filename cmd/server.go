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
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerkeep/ledgerkeep/api"
)

// serverCommands starts the HTTP API.
func serverCommands(l *ledgerkeepInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start reconciliation engine server",
		Run: func(cmd *cobra.Command, args []string) {
			router := api.NewAPI(l.engine).Router()

			server := &http.Server{
				Addr:              ":" + l.cnf.Server.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			log.Printf("Starting server on %s\n", l.cnf.Server.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		},
	}

	return cmd
}
