// Command import_families_csv loads parent and child accounts bound to each
// other from families.csv into the database, so a fresh instance can serve
// parental control before the account service syncs.
//
// Columns: parent_uid, parent_name, parent_email, child_uid, child_name, lang.
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"PinguinGuard/config"
	"PinguinGuard/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type family struct {
	Parent models.Parent
	Child  models.Child
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	file, path, err := openCSV()
	if err != nil {
		logger.Fatal("families.csv not found", zap.Error(err))
	}
	defer file.Close()
	logger.Info("reading families", zap.String("path", path))

	families, skipped, err := parseFamilies(file)
	if err != nil {
		logger.Fatal("read csv", zap.Error(err))
	}
	for _, line := range skipped {
		logger.Warn("skipping row", zap.Int("line", line))
	}

	db, err := config.InitDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}

	count := 0
	for _, f := range families {
		if err := upsertFamily(db, f); err != nil {
			logger.Error("import failed",
				zap.String("parent_uid", f.Parent.FirebaseUID),
				zap.String("child_uid", f.Child.FirebaseUID),
				zap.Error(err))
			continue
		}
		count++
	}
	logger.Info("import finished", zap.Int("imported", count), zap.Int("skipped", len(skipped)))
}

func openCSV() (*os.File, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	var errs []error
	for _, path := range []string{
		filepath.Join(dir, "families.csv"),
		filepath.Join(dir, "scripts", "families.csv"),
	} {
		file, err := os.Open(path)
		if err == nil {
			return file, path, nil
		}
		errs = append(errs, err)
	}
	return nil, "", errors.Join(errs...)
}

// parseFamilies reads every row after the header. It returns the 1-based line
// numbers of rows missing a parent or child uid.
func parseFamilies(r io.Reader) ([]family, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}

	var (
		families []family
		skipped  []int
	)
	for i, record := range records[1:] {
		field := func(n int) string {
			if n < len(record) {
				return strings.TrimSpace(record[n])
			}
			return ""
		}
		parentUID, childUID := field(0), field(3)
		if parentUID == "" || childUID == "" {
			skipped = append(skipped, i+2)
			continue
		}
		lang := field(5)
		if lang == "" {
			lang = "ru"
		}
		families = append(families, family{
			Parent: models.Parent{FirebaseUID: parentUID, Name: field(1), Email: field(2), Lang: lang},
			Child: models.Child{
				FirebaseUID:       childUID,
				Name:              field(4),
				Lang:              lang,
				ParentFirebaseUID: parentUID,
				IsBinded:          true,
			},
		})
	}
	return families, skipped, nil
}

func upsertFamily(db *gorm.DB, f family) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "firebase_uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "lang"}),
		}).Create(&f.Parent).Error
		if err != nil {
			return fmt.Errorf("parent: %w", err)
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "firebase_uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "lang", "parent_firebase_uid", "is_binded"}),
		}).Create(&f.Child).Error
		if err != nil {
			return fmt.Errorf("child: %w", err)
		}
		return nil
	})
}
