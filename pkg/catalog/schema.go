package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

// createSchema drops every table of the dataset, children first, and creates
// them again with their keys, constraints and indexes. Running it twice
// leaves the same empty schema.
func (c *Catalog) createSchema(ctx context.Context, dataset models.Dataset) error {
	logger := common.GetLoggerWith(
		common.LoggerNameCatalog,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySchema),
	)

	tables := dataset.Tables()
	if len(tables) == 0 {
		return fmt.Errorf("dataset %q has no tables", dataset)
	}

	err := c.inDataset(ctx, dataset, true, func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(tables...); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
		logger.Info("Dropped tables", zap.String("dataset", string(dataset)))

		// one call so has-many constraints land on the child tables
		if err := tx.AutoMigrate(tables...); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("Create schema failed", zap.String("dataset", string(dataset)), zap.Error(err))
		return err
	}

	names := common.Mapper(tables, tableName)
	logger.Info("Created schema", zap.String("dataset", string(dataset)), zap.Strings("tables", names))
	return nil
}

type ISchemaImpl struct {
	catalog *Catalog
}

func (is *ISchemaImpl) CreateSchema(ctx context.Context, dataset models.Dataset) error {
	return is.catalog.createSchema(ctx, dataset)
}

func (c *Catalog) GetISchema() ISchema {
	return &ISchemaImpl{catalog: c}
}
