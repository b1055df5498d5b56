package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/payment"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed staff accounts and a demo borrower for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		if clearData {
			if err := clearTables(db); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		password := os.Getenv("SEED_PASSWORD")
		if password == "" {
			password = "password"
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		accounts := []user.User{
			{Email: "admin@loans.local", FullName: "Ayu Admin", Role: user.RoleAdmin},
			{Email: "officer@loans.local", FullName: "Oka Officer", Role: user.RoleOfficer},
			{Email: "borrower@loans.local", FullName: "Bima Borrower", Role: user.RoleBorrower},
		}

		for _, a := range accounts {
			var existing user.User
			err := db.Where("email = ?", a.Email).First(&existing).Error
			if err == nil {
				fmt.Printf("%s user already exists: %s\n", existing.Role, existing.Email)
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Fatalf("failed to look up %s: %v", a.Email, err)
			}

			a.PasswordHash = string(hash)
			a.IsActive = true
			if err := db.Create(&a).Error; err != nil {
				log.Fatalf("failed to insert %s user: %v", a.Role, err)
			}
			fmt.Printf("Seeded %s user: %s\n", a.Role, a.Email)
		}
	},
}

func clearTables(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&payment.Payment{}, &loan.Repayment{}, &loan.Loan{}, &loan.Application{}, &user.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
