package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gmao/backend/internal/logger"
	"github.com/gmao/backend/internal/models"
	"github.com/gmao/backend/internal/services"
)

// DefaultUsersFile is looked up relative to the working directory.
var DefaultUsersFile = []string{"data/initial-users.json", "../../data/initial-users.json"}

type UserData struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type fileData struct {
	Users []UserData `json:"users"`
}

// Run seeds users then the demo equipment and intervention.
func Run(ctx context.Context, conn *gorm.DB, usersFiles ...string) error {
	if len(usersFiles) == 0 {
		usersFiles = DefaultUsersFile
	}
	users, err := readUsers(usersFiles)
	if err != nil {
		return err
	}
	if err := Users(ctx, conn, users); err != nil {
		return err
	}
	return Demo(ctx, conn)
}

func readUsers(paths []string) ([]UserData, error) {
	var lastErr error
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		var data fileData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		logger.Info("Loaded users file", map[string]interface{}{"path": path, "count": len(data.Users)})
		return data.Users, nil
	}
	return nil, fmt.Errorf("failed to read users file: %w", lastErr)
}

// Users creates the missing accounts. Existing emails are left untouched.
func Users(ctx context.Context, conn *gorm.DB, users []UserData) error {
	for _, u := range users {
		var existing models.User
		err := conn.WithContext(ctx).Where("email = ?", u.Email).First(&existing).Error
		if err == nil {
			logger.Debug("User already exists", map[string]interface{}{"email": u.Email})
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up %s: %w", u.Email, err)
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}

		user := models.User{
			Email:     u.Email,
			Password:  string(hashed),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      parseRole(u.Role),
		}
		if err := conn.WithContext(ctx).Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		logger.Info("Created user", map[string]interface{}{"email": user.Email, "role": user.Role})
	}
	return nil
}

func parseRole(role string) models.UserRole {
	switch strings.ToLower(role) {
	case "admin":
		return models.RoleAdmin
	case "manager":
		return models.RoleManager
	case "technicien", "technician":
		return models.RoleTechnician
	case "viewer":
		return models.RoleViewer
	default:
		logger.Warn("Unknown role, defaulting to viewer", map[string]interface{}{"role": role})
		return models.RoleViewer
	}
}

// Demo adds one equipment and an intervention walked through diagnostic and
// planification, unless equipment already exists.
func Demo(ctx context.Context, conn *gorm.DB) error {
	var count int64
	if err := conn.WithContext(ctx).Model(&models.Equipment{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count equipment: %w", err)
	}
	if count > 0 {
		return nil
	}

	equipment := models.Equipment{
		Designation:  "Pompe centrifuge P-101",
		NumeroSerie:  "PC-2024-0042",
		Localisation: "Station de pompage nord",
	}
	if err := conn.WithContext(ctx).Create(&equipment).Error; err != nil {
		return fmt.Errorf("failed to create demo equipment: %w", err)
	}

	service := services.NewWorkflowService(conn)
	intervention, err := service.CreateIntervention(ctx, services.NewIntervention{
		Date:        time.Now().UTC().Truncate(24 * time.Hour),
		Description: "Vibrations anormales sur le palier côté accouplement",
		Urgent:      true,
		EquipmentID: equipment.ID,
	})
	if err != nil {
		return err
	}

	if _, err := service.SubmitDiagnostic(ctx, intervention.ID, services.DiagnosticInput{
		TravailRequis: []string{"Remplacement roulement", "Alignement arbre"},
		BesoinPDR:     []string{"Roulement 6310-2RS"},
	}); err != nil {
		return err
	}

	capacity := 2
	if _, err := service.SubmitPlanification(ctx, intervention.ID, services.PlanificationInput{
		CapaciteExecution: &capacity,
		UrgencePrise:      true,
		DisponibilitePDR:  true,
	}); err != nil {
		return err
	}

	logger.WithIntervention(intervention.ID, "seed").Info("Demo intervention created")
	return nil
}
