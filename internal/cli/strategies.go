// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"strings"

	"code.hybscloud.com/disruptor"
	"code.hybscloud.com/disruptor/internal/bench"
	"github.com/spf13/cobra"
)

// StrategiesResult lists the names accepted by the run command.
type StrategiesResult struct {
	Wait  []string `json:"wait"`
	Claim []string `json:"claim"`
	Mode  []string `json:"mode"`
}

func (r StrategiesResult) String() string {
	var b strings.Builder
	b.WriteString("wait:  " + strings.Join(r.Wait, ", ") + "\n")
	b.WriteString("claim: " + strings.Join(r.Claim, ", ") + "\n")
	b.WriteString("mode:  " + strings.Join(r.Mode, ", "))
	return b.String()
}

// NewStrategiesCommand creates the strategies command.
func NewStrategiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "strategies",
		Short:         "List wait strategies, claim strategies and modes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Writer: cmd.OutOrStdout(), Format: rootOpts.Format}
			return out.Success(StrategiesResult{
				Wait:  disruptor.WaitStrategyNames(),
				Claim: bench.ValidClaims,
				Mode:  bench.ValidModes,
			})
		},
	}
}
