package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"liyu1981.xyz/wfdb-catalog/pkg/db"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks liyu1981.xyz/wfdb-catalog/pkg/catalog ISchema,ILoader,ISummary

type ISchema interface {
	CreateSchema(ctx context.Context, dataset models.Dataset) error
}

type ILoader interface {
	Load(ctx context.Context, dataset models.Dataset, csvDir string) (*LoadReport, error)
}

type ISummary interface {
	Summary(ctx context.Context, dataset models.Dataset) (*Report, error)
}

const DefaultBatchSize = 500

type Catalog struct {
	Db        db.DB
	BatchSize int
	Schema    ISchema
	Loader    ILoader
	Summary   ISummary
}

type ServiceOpts struct {
	Schema  ISchema
	Loader  ILoader
	Summary ISummary
}

// New returns a catalog over d with its own services wired.
func New(d *db.DB, batchSize int) *Catalog {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	c := &Catalog{Db: *d, BatchSize: batchSize}
	return c.WithServices(ServiceOpts{
		Schema:  c.GetISchema(),
		Loader:  c.GetILoader(),
		Summary: c.GetISummary(),
	})
}

func (c *Catalog) WithServices(opts ServiceOpts) *Catalog {
	if opts.Schema != nil {
		c.Schema = opts.Schema
	}
	if opts.Loader != nil {
		c.Loader = opts.Loader
	}
	if opts.Summary != nil {
		c.Summary = opts.Summary
	}
	return c
}

// inDataset runs fn in one transaction scoped to the dataset. On postgres the
// dataset's schema becomes the search path of that transaction, and with
// create it is created first.
func (c *Catalog) inDataset(ctx context.Context, dataset models.Dataset, create bool, fn func(tx *gorm.DB) error) error {
	return c.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.Db.IsPostgres() {
			schema := dataset.Schema()
			if create {
				if err := tx.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, schema)).Error; err != nil {
					return fmt.Errorf("create schema %s: %w", schema, err)
				}
			}
			if err := tx.Exec(fmt.Sprintf(`SET LOCAL search_path TO "%s"`, schema)).Error; err != nil {
				return fmt.Errorf("set search path %s: %w", schema, err)
			}
		}
		return fn(tx)
	})
}

type tabler interface {
	TableName() string
}

func tableName(model any) string {
	if t, ok := model.(tabler); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", model)
}
