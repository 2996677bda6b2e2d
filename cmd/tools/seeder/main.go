package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/loja-api/internal/auth"
	"github.com/noah-isme/loja-api/internal/catalog"
	"github.com/noah-isme/loja-api/internal/db"
	dbgen "github.com/noah-isme/loja-api/internal/db/gen"
	"github.com/noah-isme/loja-api/internal/obs"
	"github.com/noah-isme/loja-api/internal/settings"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if err := db.MigrateUp(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, dbURL, db.PoolOptions{ApplicationName: "loja-seeder"})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	queries := dbgen.New(pool)

	products, err := catalog.NewService(catalog.ServiceConfig{Queries: queries, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog service")
	}
	for _, in := range sampleProducts() {
		if _, err := products.Upsert(ctx, in); err != nil {
			logger.Fatal().Err(err).Str("product_id", in.ID).Msg("seed product")
		}
	}
	logger.Info().Int("count", len(sampleProducts())).Msg("products seeded")

	store := settings.NewStore(queries, settings.Defaults())
	vals := map[string]string{}
	for key, value := range settings.Defaults() {
		vals[key] = value
	}
	vals["about_us"] = "Loja de eletrônicos e acessórios com envio para todo o Brasil."
	vals["shipping_info"] = "Enviamos pelos Correios e transportadoras parceiras. Frete grátis acima do valor indicado em cada produto."
	if err := store.Update(ctx, vals); err != nil {
		logger.Fatal().Err(err).Msg("seed settings")
	}
	logger.Info().Msg("settings seeded")

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		logger.Warn().Msg("ADMIN_USERNAME/ADMIN_PASSWORD not set, skipping admin account")
		return
	}
	authSvc, err := auth.NewService(auth.Config{Queries: queries, Secret: "seeder-only"})
	if err != nil {
		logger.Fatal().Err(err).Msg("auth service")
	}
	if err := authSvc.EnsureAdmin(ctx, username, password); err != nil {
		logger.Fatal().Err(err).Msg("seed admin")
	}
	logger.Info().Str("username", username).Msg("admin seeded")
}

func sampleProducts() []catalog.Input {
	type seed struct {
		name, category, price, offer string
		pix                          int
		freeAbove                    string
		stock                        int
	}
	seeds := []seed{
		{"Fone Bluetooth Pulse", "Áudio", "199.90", "149.90", 5, "150.00", 40},
		{"Caixa de Som Portátil Wave", "Áudio", "349.00", "", 10, "300.00", 25},
		{"Carregador Turbo 30W", "Acessórios", "89.90", "69.90", 5, "0", 120},
		{"Cabo USB-C Trançado 2m", "Acessórios", "39.90", "", 0, "0", 300},
		{"Smartwatch Fit Pro", "Vestíveis", "599.00", "499.00", 8, "400.00", 18},
		{"Teclado Mecânico Compacto", "Periféricos", "429.90", "", 5, "400.00", 30},
		{"Mouse Sem Fio Silent", "Periféricos", "119.90", "99.90", 5, "0", 80},
		{"Webcam Full HD Stream", "Periféricos", "279.00", "", 5, "250.00", 22},
		{"Power Bank 20000mAh", "Acessórios", "229.90", "179.90", 5, "200.00", 60},
		{"Suporte Articulado para Notebook", "Escritório", "159.00", "", 0, "0", 45},
		{"Hub USB-C 7 em 1", "Acessórios", "249.90", "", 5, "200.00", 35},
		{"Ring Light 26cm", "Foto e Vídeo", "139.90", "109.90", 5, "0", 50},
		{"Microfone Condensador USB", "Áudio", "389.00", "", 10, "300.00", 15},
		{"Controle Gamer Sem Fio", "Games", "319.90", "279.90", 5, "300.00", 28},
		{"SSD Externo 1TB", "Armazenamento", "699.00", "", 7, "500.00", 12},
	}
	ends := time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339)
	out := make([]catalog.Input, 0, len(seeds))
	for i, s := range seeds {
		in := catalog.Input{
			ID:                    fmt.Sprintf("P%03d", i+1),
			Name:                  s.name,
			Category:              s.category,
			Description:           s.name + " com garantia de 12 meses.",
			Price:                 s.price,
			PixDiscountPercent:    s.pix,
			FreeShippingThreshold: s.freeAbove,
			Stock:                 s.stock,
			DeliveryEstimate:      "3 a 7 dias úteis",
			PreparationTime:       "1 dia útil",
		}
		if s.offer != "" {
			in.OnOffer = true
			in.OfferPrice = s.offer
			in.OfferEndsAt = ends
		}
		out = append(out, in)
	}
	return out
}
