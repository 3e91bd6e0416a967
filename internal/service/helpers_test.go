package service

import (
	"context"
	"testing"

	"utmcouncil/vote-api/internal/carnet"
	"utmcouncil/vote-api/internal/model"
	"utmcouncil/vote-api/internal/storage"
	"utmcouncil/vote-api/internal/testutil"
	"utmcouncil/vote-api/pkg/security"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var cheapArgon = &security.Argon{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func cardText(number string) string {
	return "UTM CARNET DE ELEV NR. " + number + " MINISTERUL EDUCAȚIEI VALABIL SEPTEMBRIE"
}

func approvingEngine(number string) carnet.Engine {
	return carnet.StaticEngine{Text: cardText(number), Confidence: 92}
}

// garbageEngine reads text confidently but finds nothing of a carnet in it
var garbageEngine = carnet.StaticEngine{Text: "LOREM IPSUM DOLOR", Confidence: 85}

var brokenEngine = carnet.StaticEngine{Err: carnet.ErrEngineFailure}

func newRegistrar(db *gorm.DB, eng carnet.Engine) *Registrar {
	return NewRegistrar(db, cheapArgon, storage.NewDatabase(db), carnet.NewPipeline(nil, eng), nil)
}

func registration(email, number string) Registration {
	return Registration{
		Email:        email,
		Password:     "secret123",
		Name:         "Ion Popescu",
		CarnetNumber: number,
		Class:        "XI-A",
		Photo:        []byte("photo of " + email),
		PhotoType:    "image/jpeg",
	}
}

func register(t *testing.T, db *gorm.DB, email, number string, eng carnet.Engine) *Outcome {
	t.Helper()

	out, err := newRegistrar(db, eng).Register(context.Background(), registration(email, number))
	require.NoError(t, err)
	return out
}

func approvedUser(t *testing.T, db *gorm.DB, email, number string) *model.User {
	t.Helper()

	out := register(t, db, email, number, approvingEngine(number))
	require.Equal(t, model.CarnetApproved, out.Carnet.Status)
	return out.User
}

func fullBallot() Ballot {
	return Ballot{
		model.PositionPresident:              "Ana",
		model.PositionVicePresident:          "Mihai",
		model.PositionCultureMinister:        "Elena",
		model.PositionAdministrationMinister: "Radu",
		model.PositionSocialMediaMinister:    "Ioana",
	}
}

func loadCarnet(t *testing.T, db *gorm.DB, userID string) *model.Carnet {
	t.Helper()

	var c model.Carnet
	require.NoError(t, db.Where("user_id = ?", userID).First(&c).Error)
	return &c
}

func count(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func newDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}
