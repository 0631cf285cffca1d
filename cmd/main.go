package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lvdashuaibi/rankvote/config"
	"github.com/lvdashuaibi/rankvote/internal/api"
	"github.com/lvdashuaibi/rankvote/internal/auth"
	"github.com/lvdashuaibi/rankvote/internal/gateway"
	intkafka "github.com/lvdashuaibi/rankvote/internal/kafka"
	"github.com/lvdashuaibi/rankvote/internal/repository"
	"github.com/lvdashuaibi/rankvote/internal/service"
)

var (
	configPath = flag.String("config", "config/config.yaml", "配置文件路径")
	instanceID = flag.Int("instance", 1, "实例ID，用于区分多个实例")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("配置加载成功，当前实例ID: %d", *instanceID)

	// 创建投票仓库(Redis)
	pollRepo, err := repository.NewPollRepository()
	if err != nil {
		log.Fatalf("初始化投票仓库失败: %v", err)
	}
	defer pollRepo.Close()
	log.Printf("投票仓库初始化成功")

	// 创建令牌服务
	tokenService := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	log.Printf("令牌服务初始化成功，令牌有效期: %v", cfg.JWT.TTL)

	// 创建投票编排服务
	pollService := service.NewPollService(pollRepo)
	log.Printf("投票服务初始化成功")

	// 创建房间Hub
	hub := gateway.NewHub()
	go hub.Run()
	defer hub.Stop()

	// 跨实例广播（可选）
	var publisher gateway.Publisher
	var consumer *intkafka.Consumer
	if cfg.Kafka.Enabled {
		producer, err := intkafka.NewProducer()
		if err != nil {
			log.Fatalf("初始化Kafka生产者失败: %v", err)
		}
		defer producer.Close()
		publisher = producer
		log.Printf("Kafka生产者初始化成功")

		consumer, err = intkafka.NewConsumer()
		if err != nil {
			log.Fatalf("初始化Kafka消费者失败: %v", err)
		}
		defer consumer.Stop()
		log.Printf("Kafka消费者初始化成功")
	}

	// 创建实时网关
	gw := gateway.NewGateway(hub, pollService, tokenService, publisher, *instanceID)
	log.Printf("实时网关初始化成功")

	// 启动跨实例广播转发
	if consumer != nil {
		consumer.StartConsuming(gw.Relay)
		log.Printf("跨实例广播转发已启动")
	}

	// 创建HTTP服务
	server := api.NewServer(pollService, tokenService, gw.HandleWS)

	// 计算端口，支持多实例
	serverPort := cfg.Server.Port + *instanceID - 1

	// 启动HTTP服务器(异步)
	go func() {
		if err := server.Start(serverPort); err != nil {
			log.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	log.Printf("rankvote (实例 %d) 已启动，服务地址: http://localhost:%d", *instanceID, serverPort)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务...")
}
