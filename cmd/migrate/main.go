package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"settlement-core/pkg/config"
)

// 数据库迁移入口。up 应用全部未执行的迁移;
// down 只回滚一个版本, 全量回滚会连交易账一起删, 不提供。
func main() {
	var (
		command string
		source  string
	)
	flag.StringVar(&command, "cmd", "up", "up | down")
	flag.StringVar(&source, "source", "file://migrations", "迁移脚本目录")
	flag.Parse()

	config.Init()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Host,
		config.Global.DB.Port,
		config.Global.DB.Name,
	)

	m, err := migrate.New(source, dsn)
	if err != nil {
		log.Fatalf("迁移初始化失败: %v", err)
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		log.Fatalf("未知命令: %s", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("迁移执行失败 (%s): %v", command, err)
	}

	version, dirty, _ := m.Version()
	log.Printf("迁移完成: cmd=%s version=%d dirty=%v", command, version, dirty)
}
