package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/kamtour/tourism/models"
)

const maxTaxonomyName = 100

// ProvinceInput is the bilingual name pair of a province.
type ProvinceInput struct {
	NameEN string
	NameKM string
}

// TaxonomyService manages categories and provinces.
type TaxonomyService struct {
	db *gorm.DB
}

// NewTaxonomyService creates a TaxonomyService.
func NewTaxonomyService(db *gorm.DB) *TaxonomyService {
	return &TaxonomyService{db: db}
}

// ListCategories returns all categories by name.
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// ListProvinces returns all provinces by English name.
func (s *TaxonomyService) ListProvinces(ctx context.Context) ([]models.Province, error) {
	var out []models.Province
	err := s.db.WithContext(ctx).Order("name_en ASC").Find(&out).Error
	return out, err
}

// CreateCategory adds a category with a unique name.
func (s *TaxonomyService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	c := models.Category{Name: name}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unique(tx, &models.Category{}, "name", name, 0); err != nil {
			return err
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, duplicateAs(err, "name")
	}
	return &c, nil
}

// UpdateCategory renames category id.
func (s *TaxonomyService) UpdateCategory(ctx context.Context, id uint, name string) (*models.Category, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return nil, err
	}
	var c models.Category
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(tx, &c, id); err != nil {
			return err
		}
		if err := unique(tx, &models.Category{}, "name", name, id); err != nil {
			return err
		}
		c.Name = name
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, duplicateAs(err, "name")
	}
	return &c, nil
}

// DeleteCategory removes category id. Categories still used by posts are kept
// and ErrConflict is returned.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := find(tx, &c, id); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Post{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("category %d is used by %d posts: %w", id, n, ErrConflict)
		}
		return tx.Delete(&c).Error
	})
}

// CreateProvince adds a province with unique English and Khmer names.
func (s *TaxonomyService) CreateProvince(ctx context.Context, in ProvinceInput) (*models.Province, error) {
	in, err := cleanProvince(in)
	if err != nil {
		return nil, err
	}
	p := models.Province{NameEN: in.NameEN, NameKM: in.NameKM}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := uniqueProvince(tx, in, 0); err != nil {
			return err
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, duplicateAs(err, "name_en")
	}
	return &p, nil
}

// UpdateProvince renames province id.
func (s *TaxonomyService) UpdateProvince(ctx context.Context, id uint, in ProvinceInput) (*models.Province, error) {
	in, err := cleanProvince(in)
	if err != nil {
		return nil, err
	}
	var p models.Province
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := find(tx, &p, id); err != nil {
			return err
		}
		if err := uniqueProvince(tx, in, id); err != nil {
			return err
		}
		p.NameEN, p.NameKM = in.NameEN, in.NameKM
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, duplicateAs(err, "name_en")
	}
	return &p, nil
}

// DeleteProvince removes province id and detaches the posts that used it.
func (s *TaxonomyService) DeleteProvince(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Province
		if err := find(tx, &p, id); err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("province_id = ?", id).Update("province_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

func cleanName(field, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", invalid(field, "is required")
	case utf8.RuneCountInString(name) > maxTaxonomyName:
		return "", invalid(field, fmt.Sprintf("must be at most %d characters", maxTaxonomyName))
	}
	return name, nil
}

func cleanProvince(in ProvinceInput) (ProvinceInput, error) {
	fields := map[string]string{}
	en, err := cleanName("name_en", in.NameEN)
	if ve, ok := AsValidation(err); ok {
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}
	km, err := cleanName("name_km", in.NameKM)
	if ve, ok := AsValidation(err); ok {
		for k, v := range ve.Fields {
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		return in, &ValidationError{Fields: fields}
	}
	return ProvinceInput{NameEN: en, NameKM: km}, nil
}

func find(tx *gorm.DB, dest interface{}, id uint) error {
	if err := tx.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func unique(tx *gorm.DB, model interface{}, column, value string, exceptID uint) error {
	var n int64
	q := tx.Model(model).Where(column+" = ?", value)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return invalid(column, "has already been taken")
	}
	return nil
}

func uniqueProvince(tx *gorm.DB, in ProvinceInput, exceptID uint) error {
	fields := map[string]string{}
	for column, value := range map[string]string{"name_en": in.NameEN, "name_km": in.NameKM} {
		err := unique(tx, &models.Province{}, column, value, exceptID)
		if ve, ok := AsValidation(err); ok {
			fields[column] = ve.Fields[column]
		} else if err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// duplicateAs maps a unique-index race lost after the pre-check to a field error.
func duplicateAs(err error, field string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return invalid(field, "has already been taken")
	}
	return err
}
