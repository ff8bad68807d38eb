// laser-server 读取激光器配置，连接全部激光器，并通过 MQTT 对外提供远程调用。
// 收到 SIGINT/SIGTERM 后停止接受调用、关光并释放串口。
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/linjuya-lu/device_laser_go/internal/config"
	"github.com/linjuya-lu/device_laser_go/internal/mqtt"
	"github.com/linjuya-lu/device_laser_go/internal/server"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "laser configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("无法加载配置文件 '%s': %v", *cfgPath, err)
	}

	lc := logger.NewClient("laser-server", cfg.LaserServer.LogLevel)

	srv := server.New(cfg, lc)
	// 配置错误时不建立任何连接
	if err := srv.Validate(); err != nil {
		lc.Errorf("configuration error: %v", err)
		os.Exit(1)
	}

	client, err := mqtt.NewClient(mqtt.ClientOptions{
		Broker:   cfg.LaserServer.BrokerURL(),
		ClientID: cfg.LaserServer.ClientID,
	})
	if err != nil {
		lc.Errorf("connect broker: %v", err)
		os.Exit(1)
	}
	gw := mqtt.NewGateway(client, cfg.LaserServer.TopicPrefix, lc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lc.Infof("laser server listening on %s, topic prefix %s", cfg.LaserServer.BrokerURL(), cfg.LaserServer.TopicPrefix)
	if err := srv.Run(ctx, gw); err != nil {
		lc.Errorf("laser server: %v", err)
		os.Exit(1)
	}
	lc.Info("laser server stopped")
}
