// 从 YAML 文件批量导入训练
//
// 管理端也提供 POST /api/trainings/import，此脚本用于首次部署时直接写库。
// memory 驱动下导入的数据在进程退出后丢失，因此要求配置持久化数据库。
//
// 用法: go run scripts/import_trainings.go -file trainings.yaml

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/repository"
	"quest_resume_backend/internal/service"
	"quest_resume_backend/internal/store"
	"quest_resume_backend/pkg/database"
	"quest_resume_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	file := flag.String("file", "", "YAML 导入文件")
	createdBy := flag.String("by", "import", "记录为创建者的用户名")
	flag.Parse()

	if *file == "" {
		log.Fatal("必须通过 -file 指定导入文件")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	svc := service.NewTrainingService(
		store.NewProgressStore(),
		repository.NewTrainingRepository(db),
		repository.NewLevelRepository(db),
		nil,
	)

	ctx := context.Background()
	if err := svc.Bootstrap(ctx, cfg.Seed); err != nil {
		log.Fatalf("加载训练失败: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法打开导入文件: %v", err)
	}
	defer f.Close()

	trainings, err := svc.ImportTrainings(ctx, f, *createdBy)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	for _, t := range trainings {
		log.Printf("已导入: %s (%d 分)", t.Title, t.TotalPoints)
	}
	log.Println("完成！")
}
