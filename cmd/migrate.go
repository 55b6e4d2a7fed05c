package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anoixa/photogram/database"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/internal/di"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// migrateCmd 创建或更新数据库结构
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := logger.Named("migrate")

		container := di.NewContainer(cfg)
		if err := container.InitDatabase(); err != nil {
			log.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer container.Close()

		if err := container.GetDatabaseFactory().AutoMigrate(); err != nil {
			log.Fatal("Failed to auto migrate database", zap.Error(err))
		}
		log.Info("Database schema is up to date", zap.String("type", cfg.DBType))
	},
}

// migrateCopyCmd 在两个数据库之间复制数据
var migrateCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy all data from one database to another",
	Long: `Copy all data from a source database to a target database (e.g., SQLite to PostgreSQL).

Examples:
  # Copy from SQLite to PostgreSQL
  photogram migrate copy --from-sqlite ./photogram.db --to-postgres "host=localhost user=postgres password=secret dbname=photogram port=5432"

  # Replace rows that already exist in the target
  photogram migrate copy --from-sqlite ./photogram.db --to-postgres "..." --on-conflict=overwrite`,
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		log := logger.Named("migrate")

		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		if fromSQLite == "" || toPostgres == "" {
			log.Fatal("Both --from-sqlite and --to-postgres are required")
		}

		source, err := openDatabase("sqlite", fromSQLite)
		if err != nil {
			log.Fatal("Failed to connect to source database", zap.Error(err))
		}
		target, err := openDatabase("postgres", toPostgres)
		if err != nil {
			log.Fatal("Failed to connect to target database", zap.Error(err))
		}
		defer source.Close()
		defer target.Close()

		log.Info("Copying database",
			zap.String("source", maskDSN(fromSQLite)),
			zap.String("target", maskDSN(toPostgres)),
			zap.String("on_conflict", onConflict),
		)

		stats, err := copyDatabase(context.Background(), source.DB(), target.DB(), batchSize, onConflict)
		for _, table := range copyOrder {
			if n, ok := stats[table]; ok {
				log.Info("Table copied", zap.String("table", table), zap.Int("rows", n))
			}
		}
		if err != nil {
			log.Fatal("Copy failed", zap.Error(err))
		}
		log.Info("Copy completed successfully")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateCopyCmd)

	migrateCopyCmd.Flags().String("from-sqlite", "", "Source SQLite file path")
	migrateCopyCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string")
	migrateCopyCmd.Flags().Int("batch-size", 100, "Batch size for data copy")
	migrateCopyCmd.Flags().String("on-conflict", "skip", "Conflict resolution strategy: skip (default), overwrite, error")
}

const pictureTagTable = "picture_tag_association"

// copyOrder 按外键依赖排列的表名
var copyOrder = []string{"users", "tags", "pictures", pictureTagTable, "transformed_pictures", "comments", "blacklisted"}

// copyDatabase 把 src 的全部数据按外键依赖顺序写入 dst，返回每张表写入的行数
func copyDatabase(ctx context.Context, src, dst *gorm.DB, batchSize int, onConflict string) (map[string]int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	var conflict []clause.Expression
	switch onConflict {
	case "skip":
		conflict = []clause.Expression{clause.OnConflict{DoNothing: true}}
	case "overwrite":
		conflict = []clause.Expression{clause.OnConflict{UpdateAll: true}}
	case "error":
	default:
		return nil, fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", onConflict)
	}

	if err := dst.WithContext(ctx).AutoMigrate(database.Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate target schema: %w", err)
	}

	stats := make(map[string]int, len(copyOrder))
	steps := []struct {
		table string
		copy  func() (int, error)
	}{
		{"users", func() (int, error) { return copyTable[models.User](ctx, src, dst, batchSize, conflict) }},
		{"tags", func() (int, error) { return copyTable[models.Tag](ctx, src, dst, batchSize, conflict) }},
		{"pictures", func() (int, error) { return copyTable[models.Picture](ctx, src, dst, batchSize, conflict) }},
		{pictureTagTable, func() (int, error) { return copyJoinTable(ctx, src, dst, pictureTagTable, conflict) }},
		{"transformed_pictures", func() (int, error) {
			return copyTable[models.TransformedPicture](ctx, src, dst, batchSize, conflict)
		}},
		{"comments", func() (int, error) { return copyTable[models.Comment](ctx, src, dst, batchSize, conflict) }},
		{"blacklisted", func() (int, error) { return copyTable[models.Blacklisted](ctx, src, dst, batchSize, conflict) }},
	}

	for _, step := range steps {
		n, err := step.copy()
		stats[step.table] = n
		if err != nil {
			return stats, fmt.Errorf("failed to copy %s: %w", step.table, err)
		}
	}

	if dst.Dialector.Name() == "postgres" {
		if err := resetSequences(ctx, dst); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func copyTable[T any](ctx context.Context, src, dst *gorm.DB, batchSize int, conflict []clause.Expression) (int, error) {
	copied := 0
	var batch []T
	err := src.WithContext(ctx).FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		res := dst.WithContext(ctx).Omit(clause.Associations).Clauses(conflict...).Create(&batch)
		if res.Error != nil {
			return res.Error
		}
		copied += int(res.RowsAffected)
		return nil
	}).Error
	return copied, err
}

// copyJoinTable 复制没有对应模型的多对多关联表
func copyJoinTable(ctx context.Context, src, dst *gorm.DB, table string, conflict []clause.Expression) (int, error) {
	var rows []map[string]interface{}
	if err := src.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := dst.WithContext(ctx).Table(table).Clauses(conflict...).Create(&rows)
	return int(res.RowsAffected), res.Error
}

// resetSequences 显式写入主键后需要把 PostgreSQL 序列推进到当前最大值
func resetSequences(ctx context.Context, db *gorm.DB) error {
	for _, model := range database.Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return err
		}
		table := stmt.Schema.Table
		sql := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
			table, table,
		)
		if err := db.WithContext(ctx).Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (database.Provider, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return database.NewGormProviderFromDB(db), nil
}

// maskDSN 隐藏连接串中的密码
func maskDSN(dsn string) string {
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	masked := strings.Join(fields, " ")
	if len(masked) > 80 {
		return masked[:80] + "..."
	}
	return masked
}
