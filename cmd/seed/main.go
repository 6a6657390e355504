package main

import (
	"fmt"
	"log"

	"sofra_market/internal/pkg/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// 开发环境演示数据：一个客户、两个家厨和几道菜
func main() {
	config.LoadConfig()
	cfg := config.GlobalConfig.Database
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	tx := db.MustBegin()

	insertUser := func(mobile, email, nickname string, role int) string {
		var id string
		err := tx.QueryRowx(`INSERT INTO users (mobile, email, nickname, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (mobile) DO UPDATE SET email = EXCLUDED.email
			RETURNING id`, mobile, email, nickname, role).Scan(&id)
		if err != nil {
			log.Fatalf("insert user %s: %v", mobile, err)
		}
		return id
	}

	clientID := insertUser("0500000001", "sara@example.com", "Sara", 1)
	cook1ID := insertUser("0500000002", "um.ahmed@example.com", "أم أحمد", 2)
	cook2ID := insertUser("0500000003", "um.khalid@example.com", "أم خالد", 2)

	dishes := []struct {
		CookID   string
		Name     string
		NameEn   string
		Price    float64
		Category string
	}{
		{cook1ID, "كبسة دجاج", "Chicken Kabsa", 50.00, "rice"},
		{cook1ID, "مندي لحم", "Lamb Mandi", 85.00, "rice"},
		{cook2ID, "ملوخية", "Molokhia", 35.00, "stew"},
		{cook2ID, "محشي ورق عنب", "Stuffed Vine Leaves", 45.00, "appetizer"},
	}
	for _, d := range dishes {
		tx.MustExec(`INSERT INTO dishes (cook_id, name, name_en, price, category, available, status)
			VALUES ($1, $2, $3, $4, $5, TRUE, 'approved')`,
			d.CookID, d.Name, d.NameEn, d.Price, d.Category)
	}

	// 家厨的试用期订阅
	for _, cookID := range []string{cook1ID, cook2ID} {
		tx.MustExec(`INSERT INTO subscriptions (user_id, provider_type, status, trial_ends_at)
			VALUES ($1, 'home_cook', 'trial', now() + interval '30 days')
			ON CONFLICT (user_id) DO NOTHING`, cookID)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}

	log.Printf("seeded: client=%s cooks=[%s %s] dishes=%d", clientID, cook1ID, cook2ID, len(dishes))
}
