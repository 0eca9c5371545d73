package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"namesake/auth"
	"namesake/cache"
	"namesake/common"
	"namesake/database"
	"namesake/forms"
	"namesake/models"
	"namesake/quests"
	"namesake/userquests"
	"namesake/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	root := &cobra.Command{
		Use:   "namesake",
		Short: "Namesake API server - track and complete legal name changes",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the starter quest catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			db := mustConnect()
			return database.SeedData(db, 0)
		},
	}

	var codeCount int
	codes := &cobra.Command{
		Use:   "codes",
		Short: "Generate early access codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			db := mustConnect()
			for i := 0; i < codeCount; i++ {
				code := models.EarlyAccessCode{ID: uuid.NewString()}
				if err := db.Create(&code).Error; err != nil {
					return err
				}
				fmt.Println(code.ID)
			}
			return nil
		},
	}
	codes.Flags().IntVarP(&codeCount, "count", "n", 1, "number of codes to generate")

	root.AddCommand(serve, seed, codes)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func mustConnect() *gorm.DB {
	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	return db
}

func runServer() error {
	db := mustConnect()

	if common.IsDevelopment() {
		if err := database.SeedData(db, 0); err != nil {
			log.Printf("Error seeding data: %v", err)
		}
	}

	if err := cache.ClearOldTemplates(forms.TemplateMaxAge); err != nil {
		log.Printf("Error sweeping template cache: %v", err)
	}

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("namesake-session", store))

	authModule := auth.NewAuthModule(db)
	authModule.RegisterRoutes(router)

	usersModule := users.NewUsersModule(db)
	usersModule.RegisterRoutes(router)

	questsModule := quests.NewQuestsModule(db)
	questsModule.RegisterRoutes(router)

	userQuestsModule := userquests.NewUserQuestsModule(db)
	userQuestsModule.RegisterRoutes(router)

	formsModule := forms.NewFormsModule(db)
	formsModule.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	return router.Run(":" + port)
}
