package agent

import (
	"github.com/spf13/cobra"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Duration("monitor.interval", defaultCfg.Monitor.Interval, "采样间隔")
	f.Int("monitor.batch_size", defaultCfg.Monitor.BatchSize, "每批快照数量")

	f.Bool("monitor.collectors.processes.enable", defaultCfg.Monitor.Collectors.Processes.Enable, "采集进程列表")
	f.Bool("monitor.collectors.network.enable", defaultCfg.Monitor.Collectors.Network.Enable, "采集网卡收发计数")
	f.StringSlice("monitor.collectors.network.ignore_networks", defaultCfg.Monitor.Collectors.Network.IgnoreNetworks, "忽略网络网卡")
}

func initDeliveryFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("delivery.server_url", defaultCfg.Delivery.ServerURL, "远端 collector 地址（环境变量 SERVER_URL）")
	f.Bool("delivery.compress", defaultCfg.Delivery.Compress, "gzip 压缩报文")
	f.Duration("delivery.timeout", defaultCfg.Delivery.Timeout, "单次投递超时")
	f.String("delivery.user_agent", defaultCfg.Delivery.UserAgent, "User-Agent 请求头")
}
