// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	pubgrub "github.com/contriboss/pubgrub-composer"
)

var constraintCmd = &cobra.Command{
	Use:   "constraint <expression> [version...]",
	Short: "Show how a constraint is interpreted",
	Long: `Parse a constraint expression, print the exact version ranges it
stands for and check which of the given versions it allows.`,
	Example: `  pubgrub-composer constraint "^0.2.3"
  pubgrub-composer constraint "~1.2 || dev-main" 1.2.9 1.3.0 dev-main`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConstraint,
}

func init() {
	rootCmd.AddCommand(constraintCmd)
}

func runConstraint(cmd *cobra.Command, args []string) error {
	c, err := pubgrub.ParseConstraint(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(out, "%s  %s\n", args[0], gray("=> "+c.Set().String()))
	if s, ok := c.Stability(); ok {
		fmt.Fprintf(out, "stability flag: %s\n", s)
	}

	for _, raw := range args[1:] {
		v, err := pubgrub.ParseVersion(raw)
		if err != nil {
			return err
		}
		mark := red("no ")
		if c.Allows(v) {
			mark = green("yes")
		}
		fmt.Fprintf(out, "  %s  %s %s\n", mark, v, gray("("+v.Stability().String()+")"))
	}
	return nil
}
