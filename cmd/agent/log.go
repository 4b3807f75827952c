package agent

import (
	"github.com/spf13/cobra"
)

func initLogFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	logPrefix := "log."

	f.Bool(
		logPrefix+"enable",
		defaultCfg.Log.Enable,
		"-> Enable logging (env LOGGING) | 是否输出日志")
	f.String(
		logPrefix+"level",
		defaultCfg.Log.Level,
		"-> Log level [debug,info,warn,error] | 日志级别")
	f.String(
		logPrefix+"format",
		defaultCfg.Log.Format,
		"-> Log format [console,json] | 日志格式 [console,json]")
	f.String(
		logPrefix+"path",
		defaultCfg.Log.Path,
		"-> Log file storage path | 日志路径")
	f.Int(
		logPrefix+"max_backup",
		defaultCfg.Log.MaxBackup,
		"-> Number of log backup files | 备份数量")
	f.Int(
		logPrefix+"max_age",
		defaultCfg.Log.MaxAge,
		"-> Maximum retention days of log files | 保存天数")
}
