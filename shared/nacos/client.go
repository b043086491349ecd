package nacos

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/naming_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"

	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// Config holds the Nacos connection settings.
type Config struct {
	ServerAddr  string `mapstructure:"server_addr"` // host:port[,host:port]
	NamespaceID string `mapstructure:"namespace_id"`
	Group       string `mapstructure:"group"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	LogDir      string `mapstructure:"log_dir"`
	CacheDir    string `mapstructure:"cache_dir"`
}

// Client registers this instance with Nacos naming.
type Client struct {
	config       Config
	namingClient naming_client.INamingClient
	log          logger.Logger
	stop         chan struct{}
	stopOnce     sync.Once
}

// ParseServerAddrs splits "h1:p1,h2:p2" into server configs.
func ParseServerAddrs(addrs string) ([]constant.ServerConfig, error) {
	var out []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid nacos address %q: %w", addr, err)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid nacos port %q: %w", portStr, err)
		}
		out = append(out, constant.ServerConfig{IpAddr: host, Port: port})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no nacos server address configured")
	}
	return out, nil
}

// NewClient creates a naming client.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.NamespaceID == "" {
		cfg.NamespaceID = "public"
	}
	if cfg.Group == "" {
		cfg.Group = "DEFAULT_GROUP"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "/tmp/nacos/log"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "/tmp/nacos/cache"
	}

	serverConfigs, err := ParseServerAddrs(cfg.ServerAddr)
	if err != nil {
		return nil, err
	}

	clientConfig := constant.ClientConfig{
		NamespaceId:         cfg.NamespaceID,
		TimeoutMs:           5000,
		NotLoadCacheAtStart: true,
		LogDir:              cfg.LogDir,
		CacheDir:            cfg.CacheDir,
		Username:            cfg.Username,
		Password:            cfg.Password,
		LogLevel:            "warn",
	}

	namingClient, err := clients.NewNamingClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		return nil, fmt.Errorf("create nacos naming client: %w", err)
	}

	return &Client{
		config:       cfg,
		namingClient: namingClient,
		log:          log,
		stop:         make(chan struct{}),
	}, nil
}

// Register adds an ephemeral instance and keeps it marked healthy.
func (c *Client) Register(serviceName, ip string, port int, metadata map[string]string, heartbeat time.Duration) error {
	if ip == "" {
		local, err := localIP()
		if err != nil {
			return err
		}
		ip = local
	}

	ok, err := c.namingClient.RegisterInstance(vo.RegisterInstanceParam{
		Ip:          ip,
		Port:        uint64(port),
		ServiceName: serviceName,
		Weight:      10,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		Metadata:    metadata,
		GroupName:   c.config.Group,
	})
	if err != nil {
		return fmt.Errorf("register nacos instance: %w", err)
	}
	if !ok {
		return fmt.Errorf("nacos refused registration of %s", serviceName)
	}

	if heartbeat > 0 {
		go c.keepHealthy(serviceName, ip, port, heartbeat)
	}
	return nil
}

func (c *Client) keepHealthy(serviceName, ip string, port int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			_, err := c.namingClient.UpdateInstance(vo.UpdateInstanceParam{
				Ip:          ip,
				Port:        uint64(port),
				ServiceName: serviceName,
				Weight:      10,
				Enable:      true,
				Healthy:     true,
				Ephemeral:   true,
				GroupName:   c.config.Group,
			})
			if err != nil {
				c.log.Warn("nacos heartbeat failed: %v", err)
			}
		}
	}
}

// Deregister removes the instance and stops the heartbeat.
func (c *Client) Deregister(serviceName, ip string, port int) error {
	c.stopOnce.Do(func() { close(c.stop) })
	if ip == "" {
		local, err := localIP()
		if err != nil {
			return err
		}
		ip = local
	}
	_, err := c.namingClient.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          ip,
		Port:        uint64(port),
		ServiceName: serviceName,
		Ephemeral:   true,
		GroupName:   c.config.Group,
	})
	if err != nil {
		return fmt.Errorf("deregister nacos instance: %w", err)
	}
	return nil
}

func localIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("list interface addresses: %w", err)
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String(), nil
		}
	}
	return "", fmt.Errorf("no non-loopback IPv4 address found")
}
