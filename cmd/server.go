package cmd

import (
	"github.com/spf13/cobra"

	"github.com/VanGongwanxiaowan/batch-video2/config"
	server2 "github.com/VanGongwanxiaowan/batch-video2/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start the job worker and http server",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
