package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validate HTTP服务配置校验
func (h *ServerConfig) Validate() error {
	if err := valid.Struct(h); err != nil {
		return err
	}
	if h.Addr == "" {
		return errors.New("[ERROR] Server.Addr cannot be empty")
	}
	// 	用net包解析地址，验证格式合法性
	if _, err := net.ResolveTCPAddr("tcp", h.Addr); err != nil {
		return fmt.Errorf("[ERROR] Server.Addr format invalid (expected: :port or ip:port), got %s: %w", h.Addr, err)
	}
	return nil
}

func (m *MonitorConfig) Validate() error {
	if err := valid.Struct(m); err != nil {
		return err
	}
	if m.Interval < time.Second || m.Interval > 3600*time.Second {
		return fmt.Errorf("monitor.interval must be between 1 and 3600 seconds, got %s", m.Interval)
	}
	if m.BatchSize <= 0 {
		return fmt.Errorf("monitor.batch_size must be positive, got %d", m.BatchSize)
	}
	return m.Collectors.Network.Validate()
}

// Validate 忽略列表不能包含空字符串
// 网络接口格式必须合法（不能有空格、不能是奇怪字符）
// 重复项检测（避免配置写错）
// network 未启用时不校验
func (n *NetworkCollectorConfig) Validate() error {
	if err := valid.Struct(n); err != nil {
		return err
	}
	if !n.Enable {
		return nil
	}

	seen := map[string]bool{}
	for _, iface := range n.IgnoreNetworks {
		if strings.TrimSpace(iface) == "" {
			return fmt.Errorf("network.ignore_networks cannot contain empty string")
		}
		// 通常linux 接口名如 eth0,enp0s3,lo,docker0..
		if strings.ContainsAny(iface, " \t\r\n") {
			return fmt.Errorf("network.ignore_networks: interface %q contains whitespace", iface)
		}
		if strings.ContainsAny(iface, "/\\") {
			return fmt.Errorf("network.ignore_networks: interface %q must not contain '/' or '\\\\'", iface)
		}
		if seen[iface] {
			return fmt.Errorf("network.ignore_networks duplicated entry: %q", iface)
		}
		seen[iface] = true
	}
	return nil
}

// Validate 投递地址必须是 http/https 绝对地址
func (d *DeliveryConfig) Validate() error {
	if err := valid.Struct(d); err != nil {
		return err
	}
	u, err := url.Parse(d.ServerURL)
	if err != nil {
		return fmt.Errorf("delivery.server_url invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("delivery.server_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("delivery.server_url must include a host, got %q", d.ServerURL)
	}
	return nil
}
