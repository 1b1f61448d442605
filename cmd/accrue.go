/*
Copyright 2024 Boreal Insurance PGI Authors.

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
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// accrueCommands runs the accrual job once, inline or through the workers.
func accrueCommands(app *pgiInstance) *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   "accrue",
		Short: "run the premium accrual job once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if async {
				info, err := app.pgi.EnqueueAccrual(ctx)
				if err != nil {
					return err
				}
				logrus.WithField("task_id", info.ID).Info("accrual run queued")
				return nil
			}

			run, err := app.pgi.RunAccrualJob(ctx)
			if err != nil {
				return err
			}
			if run == nil {
				logrus.Info("accrual job is already running elsewhere, nothing to do")
				return nil
			}
			return printJSON(run)
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "queue the run for the workers instead of running it here")
	return cmd
}
