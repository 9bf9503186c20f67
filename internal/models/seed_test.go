package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openModelsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestSeedDemoCatalogIsIdempotent(t *testing.T) {
	db := openModelsTestDB(t)

	if err := SeedDemoCatalog(db); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if err := SeedDemoCatalog(db); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var shops, products int64
	db.Model(&Shop{}).Count(&shops)
	db.Model(&Product{}).Count(&products)
	if shops != 2 {
		t.Fatalf("shop count want 2 got %d", shops)
	}
	if products != 5 {
		t.Fatalf("product count want 5 got %d", products)
	}

	var drill Product
	if err := db.Where("sku = ?", "NH-DRILL-02").First(&drill).Error; err != nil {
		t.Fatalf("load seeded product failed: %v", err)
	}
	if drill.Price.String() != "89.00" {
		t.Fatalf("seeded price want 89.00 got %s", drill.Price.String())
	}
}

func TestSumMoney(t *testing.T) {
	got := SumMoney(
		NewMoneyFromDecimal(decimal.RequireFromString("10.10")),
		NewMoneyFromDecimal(decimal.RequireFromString("0.20")),
		NewMoneyFromDecimal(decimal.RequireFromString("5")),
	)
	if got.String() != "15.30" {
		t.Fatalf("sum want 15.30 got %s", got.String())
	}
	if SumMoney().String() != "0.00" {
		t.Fatalf("empty sum should be zero")
	}
}

func TestNewMoneyFromStringRejectsGarbage(t *testing.T) {
	if _, err := NewMoneyFromString("twelve"); err == nil {
		t.Fatalf("expected parse error")
	}
	m, err := NewMoneyFromString(" 3.456 ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.String() != "3.46" {
		t.Fatalf("rounded money want 3.46 got %s", m.String())
	}
}

func TestMoneyUnmarshalRejectsSubCentPrecision(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`"20.004"`), &m); !errors.Is(err, ErrMoneyPrecision) {
		t.Fatalf("expected precision error for 20.004, got %v", err)
	}
	if err := json.Unmarshal([]byte(`20.004`), &m); !errors.Is(err, ErrMoneyPrecision) {
		t.Fatalf("expected precision error for numeric 20.004, got %v", err)
	}
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected parse error")
	}

	cases := map[string]string{`"20.00"`: "20.00", `"20.100"`: "20.10", `0.1`: "0.10", `7`: "7.00"}
	for in, want := range cases {
		var got Money
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("unmarshal %s failed: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("unmarshal %s want %s got %s", in, want, got.String())
		}
	}
}
