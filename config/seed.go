package config

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kamtour/tourism/models"
)

var seedCategories = []string{
	"Temple", "River", "Lake", "Mountain", "Hotel", "Waterfall",
	"National Park", "Sanctuary", "Palace", "Monument", "Farm",
}

var seedProvinces = [][2]string{
	{"Banteay Meanchey", "បន្ទាយមានជ័យ"},
	{"Battambang", "បាត់ដំបង"},
	{"Kampong Cham", "កំពង់ចាម"},
	{"Kampong Chhnang", "កំពង់ឆ្នាំង"},
	{"Kampong Speu", "កំពង់ស្ពឺ"},
	{"Kampong Thom", "កំពង់ធំ"},
	{"Kampot", "កំពត"},
	{"Kandal", "កណ្ដាល"},
	{"Koh Kong", "កោះកុង"},
	{"Kratie", "ក្រចេះ"},
	{"Mondulkiri", "មណ្ឌលគិរី"},
	{"Phnom Penh", "ភ្នំពេញ"},
	{"Preah Vihear", "ព្រះវិហារ"},
	{"Prey Veng", "ព្រៃវែង"},
	{"Pursat", "ពោធិ៍សាត់"},
	{"Ratanakiri", "រតនគិរី"},
	{"Siem Reap", "សៀមរាប"},
	{"Preah Sihanouk", "ព្រះសីហនុ"},
	{"Stung Treng", "ស្ទឹងត្រែង"},
	{"Svay Rieng", "ស្វាយរៀង"},
	{"Takeo", "តាកែវ"},
	{"Oddar Meanchey", "ឧត្ដរមានជ័យ"},
	{"Kep", "កែប"},
	{"Pailin", "ប៉ៃលិន"},
	{"Tboung Khmum", "ត្បូងឃ្មុំ"},
}

// SeedTaxonomy inserts the default categories and provinces that are missing.
// Running it repeatedly is safe.
func SeedTaxonomy(conn *gorm.DB) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		for _, name := range seedCategories {
			c := models.Category{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&c).Error; err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
		}
		for _, p := range seedProvinces {
			row := models.Province{NameEN: p[0], NameKM: p[1]}
			if err := tx.Where("name_en = ?", p[0]).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed province %q: %w", p[0], err)
			}
		}
		return nil
	})
}
