package Store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"TeleCare/Config"
	"TeleCare/Models"
)

// document is one stored subtree. No row's path is a prefix of another row's
// path: a write below an existing row is merged into that row, and a write
// above existing rows replaces them.
type document struct {
	Path      string         `gorm:"primaryKey;type:text"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (document) TableName() string { return "documents" }

// Postgres keeps the document tree in a single jsonb table.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(cfg Config.DatabaseConfig, logger *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("connected to database",
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name),
	)
	return NewPostgresWithDB(db)
}

// NewPostgresWithDB migrates the documents table on an existing connection.
func NewPostgresWithDB(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("migrating documents table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, path string, v any) error {
	segs := Models.SplitPath(path)
	rows, err := load(p.db.WithContext(ctx), segs)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	loc, err := assemble(rows, segs)
	if err != nil {
		return err
	}
	if loc.value == nil {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	raw, err := json.Marshal(loc.value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return json.Unmarshal(raw, v)
}

func (p *Postgres) Set(ctx context.Context, path string, v any) error {
	return p.mutate(ctx, path, func(json.RawMessage) (any, error) { return v, nil })
}

func (p *Postgres) Push(ctx context.Context, path string, v any) (string, error) {
	return push(ctx, p, path, v)
}

func (p *Postgres) Update(ctx context.Context, path string, fn UpdateFunc) error {
	return p.mutate(ctx, path, fn)
}

func (p *Postgres) Remove(ctx context.Context, path string) error {
	return p.mutate(ctx, path, func(json.RawMessage) (any, error) { return nil, nil })
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// mutate serialises writes per top-level collection with a transaction scoped
// advisory lock, then rewrites the rows covering path.
func (p *Postgres) mutate(ctx context.Context, path string, fn UpdateFunc) error {
	segs, err := writePath(path)
	if err != nil {
		return err
	}
	clean := strings.Join(segs, "/")

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", segs[0]).Error; err != nil {
			return fmt.Errorf("locking %s: %w", segs[0], err)
		}

		rows, err := load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), segs)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		loc, err := assemble(rows, segs)
		if err != nil {
			return err
		}
		current, err := encode(loc.value)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		value, err := normalize(next)
		if err != nil {
			return err
		}

		if loc.ancestor != nil {
			rel := segs[len(Models.SplitPath(loc.ancestor.Path)):]
			put(loc.tree, rel, value)
			if len(loc.tree) == 0 {
				return tx.Delete(&document{}, "path = ?", loc.ancestor.Path).Error
			}
			raw, err := json.Marshal(loc.tree)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", loc.ancestor.Path, err)
			}
			return tx.Model(&document{}).
				Where("path = ?", loc.ancestor.Path).
				Updates(map[string]any{"value": datatypes.JSON(raw), "updated_at": time.Now().UTC()}).Error
		}

		if err := tx.Where("path = ?", clean).
			Or("path LIKE ? ESCAPE '\\'", escapeLike(clean)+"/%").
			Delete(&document{}).Error; err != nil {
			return fmt.Errorf("replacing %s: %w", path, err)
		}
		if value == nil {
			return nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		return tx.Create(&document{Path: clean, Value: datatypes.JSON(raw), UpdatedAt: time.Now().UTC()}).Error
	})
}

// load fetches the rows that hold path: any ancestor row, the row at path, and
// rows below it.
func load(tx *gorm.DB, segs []string) ([]document, error) {
	var rows []document
	if len(segs) == 0 {
		err := tx.Order("path").Find(&rows).Error
		return rows, err
	}
	ancestors := make([]string, len(segs))
	for i := range segs {
		ancestors[i] = strings.Join(segs[:i+1], "/")
	}
	prefix := escapeLike(strings.Join(segs, "/")) + "/%"
	err := tx.Where("path IN ?", ancestors).
		Or("path LIKE ? ESCAPE '\\'", prefix).
		Order("path").
		Find(&rows).Error
	return rows, err
}

type located struct {
	value    any
	ancestor *document
	tree     map[string]any
}

func assemble(rows []document, segs []string) (located, error) {
	var loc located
	tree := map[string]any{}
	for i := range rows {
		row := &rows[i]
		rowSegs := Models.SplitPath(row.Path)
		var decoded any
		if err := json.Unmarshal(row.Value, &decoded); err != nil {
			return loc, fmt.Errorf("decoding %s: %w", row.Path, err)
		}
		if len(rowSegs) < len(segs) {
			m, ok := decoded.(map[string]any)
			if !ok {
				m = map[string]any{}
			}
			loc.ancestor, loc.tree = row, m
			loc.value, _ = lookup(m, segs[len(rowSegs):])
			return loc, nil
		}
		rel := rowSegs[len(segs):]
		if len(rel) == 0 {
			loc.value = decoded
			return loc, nil
		}
		put(tree, rel, decoded)
	}
	if len(tree) > 0 {
		loc.value = tree
	}
	return loc, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
