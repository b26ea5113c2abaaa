// Copyright (c) 2026 JadeWellness. All rights reserved.

package account

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jadewellness/backend/internal/platform/dberr"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/pkg/textnorm"
)

// # Collections

// Collection names follow the existing JadeWellness document database.
const (
	CollectionPatients       = "users"
	CollectionClinicians     = "doctors"
	CollectionAdministrators = "admins"
)

// accountDocument is the BSON shape shared by the three collections.
// Variant fields are simply absent on kinds that do not use them.
type accountDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`

	// Patient
	Birthdate        *time.Time           `bson:"birthdate,omitempty"`
	Gender           string               `bson:"gender,omitempty"`
	MedicalCondition string               `bson:"medicalCondition,omitempty"`
	Address          string               `bson:"address,omitempty"`
	TwoFactorSecret  string               `bson:"twoFactorSecret,omitempty"`
	TwoFactorEnabled bool                 `bson:"twoFactorEnabled,omitempty"`
	BackupCodes      []string             `bson:"backupCodes,omitempty"`
	LoginHistory     []loginEntryDocument `bson:"loginHistory,omitempty"`

	// Shared by patients and clinicians
	Phone string `bson:"phone,omitempty"`

	// Clinician
	Specialty          string `bson:"specialty,omitempty"`
	Experience         int    `bson:"experience,omitempty"`
	Qualifications     string `bson:"qualifications,omitempty"`
	QualificationsFile string `bson:"qualificationsFile,omitempty"`
	Available          *bool  `bson:"available,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type loginEntryDocument struct {
	Timestamp time.Time `bson:"timestamp"`
	IPAddress string    `bson:"ipAddress,omitempty"`
	UserAgent string    `bson:"userAgent,omitempty"`
	Success   bool      `bson:"success"`
}

// # Mongo Store

// MongoStore implements [PatientStore] over one MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
	role       sec.Role
	logger     *slog.Logger
}

// NewMongoStore binds a store of the given role to a collection.
func NewMongoStore(database *mongo.Database, collection string, role sec.Role, logger *slog.Logger) *MongoStore {
	return &MongoStore{
		collection: database.Collection(collection),
		role:       role,
		logger:     logger,
	}
}

// NewMongoDirectory binds the three stores to their conventional collections.
func NewMongoDirectory(database *mongo.Database, logger *slog.Logger) (Directory, []*MongoStore) {
	patients := NewMongoStore(database, CollectionPatients, sec.RolePatient, logger)
	clinicians := NewMongoStore(database, CollectionClinicians, sec.RoleClinician, logger)
	administrators := NewMongoStore(database, CollectionAdministrators, sec.RoleAdministrator, logger)

	return Directory{
		Patients:       patients,
		Clinicians:     clinicians,
		Administrators: administrators,
	}, []*MongoStore{patients, clinicians, administrators}
}

// EnsureIndexes creates the unique email index. Failure is logged, not fatal:
// legacy collections may hold mixed-case duplicates that block the build.
func (store *MongoStore) EnsureIndexes(context context.Context) {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := store.collection.Indexes().CreateOne(context, indexModel); err != nil {
		store.logger.Warn("mongo_index_create_failed",
			slog.String("collection", store.collection.Name()),
			slog.Any("error", err),
		)
	}
}

// Role implements [Store].
func (store *MongoStore) Role() sec.Role { return store.role }

// FindByID implements [Store].
func (store *MongoStore) FindByID(context context.Context, id string) (*Account, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var document accountDocument
	err = store.collection.FindOne(context, bson.M{"_id": objectID}).Decode(&document)
	if err != nil {
		return nil, dberr.Wrap(err, "mongo_store_find_by_id_failed", ErrNotFound, nil)
	}
	return store.toAccount(&document), nil
}

// FindByEmail implements [Store]. Matching is an anchored, case-insensitive
// regex so records written before emails were normalized still resolve.
func (store *MongoStore) FindByEmail(context context.Context, email string) (*Account, error) {
	var document accountDocument
	err := store.collection.FindOne(context, bson.M{"email": emailPattern(email)}).Decode(&document)
	if err != nil {
		return nil, dberr.Wrap(err, "mongo_store_find_by_email_failed", ErrNotFound, nil)
	}
	return store.toAccount(&document), nil
}

// emailPattern anchors the normalized address so "a.b@x.com" cannot match "aXb@x.com".
func emailPattern(email string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(textnorm.Email(email)) + "$", Options: "i"}
}

// Create implements [Store].
func (store *MongoStore) Create(context context.Context, account *Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Role = store.role

	document := store.toDocument(account)
	if account.ID != "" {
		objectID, err := primitive.ObjectIDFromHex(account.ID)
		if err != nil {
			return fmt.Errorf("mongo_store_create_failed: invalid id %q", account.ID)
		}
		document.ID = objectID
	} else {
		document.ID = primitive.NewObjectID()
	}

	if _, err := store.collection.InsertOne(context, document); err != nil {
		return dberr.Wrap(err, "mongo_store_create_failed", nil, ErrDuplicateEmail)
	}

	account.ID = document.ID.Hex()
	return nil
}

// Update implements [Store].
func (store *MongoStore) Update(context context.Context, account *Account) error {
	objectID, err := primitive.ObjectIDFromHex(account.ID)
	if err != nil {
		return ErrNotFound
	}

	account.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":      account.Name,
		"email":     account.Email,
		"updatedAt": account.UpdatedAt,
	}

	switch {
	case account.Patient != nil:
		set["birthdate"] = account.Patient.Birthdate
		set["gender"] = account.Patient.Gender
		set["medicalCondition"] = account.Patient.MedicalCondition
		set["phone"] = account.Patient.Phone
		set["address"] = account.Patient.Address
	case account.Clinician != nil:
		set["specialty"] = account.Clinician.Specialty
		set["phone"] = account.Clinician.Phone
		set["experience"] = account.Clinician.Experience
		set["qualifications"] = account.Clinician.Qualifications
		set["qualificationsFile"] = account.Clinician.QualificationsFile
		set["available"] = account.Clinician.Available
	}

	result, err := store.collection.UpdateOne(context, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return dberr.Wrap(err, "mongo_store_update_failed", nil, ErrDuplicateEmail)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword implements [Store].
func (store *MongoStore) UpdatePassword(context context.Context, id, passwordHash string) error {
	return store.updateFields(context, id, "mongo_store_update_password_failed", bson.M{
		"password":  passwordHash,
		"updatedAt": time.Now().UTC(),
	})
}

// Delete implements [Store].
func (store *MongoStore) Delete(context context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := store.collection.DeleteOne(context, bson.M{"_id": objectID})
	if err != nil {
		return dberr.Wrap(err, "mongo_store_delete_failed", nil, nil)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements [Store].
func (store *MongoStore) List(context context.Context, offset, limit int) ([]*Account, int, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"password": 0, "twoFactorSecret": 0, "backupCodes": 0})

	cursor, err := store.collection.Find(context, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "mongo_store_list_failed", nil, nil)
	}
	defer cursor.Close(context)

	var documents []accountDocument
	if err := cursor.All(context, &documents); err != nil {
		return nil, 0, dberr.Wrap(err, "mongo_store_list_decode_failed", nil, nil)
	}

	total, err := store.collection.CountDocuments(context, bson.M{})
	if err != nil {
		return nil, 0, dberr.Wrap(err, "mongo_store_count_failed", nil, nil)
	}

	accounts := make([]*Account, 0, len(documents))
	for i := range documents {
		accounts = append(accounts, store.toAccount(&documents[i]))
	}
	return accounts, int(total), nil
}

// SaveTwoFactor implements [PatientStore].
func (store *MongoStore) SaveTwoFactor(context context.Context, id string, state TwoFactor) error {
	codes := state.BackupCodes
	if codes == nil {
		codes = []string{}
	}
	return store.updateFields(context, id, "mongo_store_save_two_factor_failed", bson.M{
		"twoFactorSecret":  state.Secret,
		"twoFactorEnabled": state.Enabled,
		"backupCodes":      codes,
		"updatedAt":        time.Now().UTC(),
	})
}

// ConsumeBackupCode implements [PatientStore] with a filtered $pull: the
// document only matches while it still holds the code.
func (store *MongoStore) ConsumeBackupCode(context context.Context, id, code string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil || code == "" {
		return false, nil
	}

	result, err := store.collection.UpdateOne(context,
		bson.M{"_id": objectID, "backupCodes": code},
		bson.M{
			"$pull": bson.M{"backupCodes": code},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, dberr.Wrap(err, "mongo_store_consume_backup_code_failed", nil, nil)
	}
	return result.ModifiedCount == 1, nil
}

// AppendLoginEntry implements [PatientStore]; $slice keeps the newest entries.
func (store *MongoStore) AppendLoginEntry(context context.Context, id string, entry LoginEntry) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := store.collection.UpdateOne(context, bson.M{"_id": objectID}, bson.M{
		"$push": bson.M{"loginHistory": bson.M{
			"$each":  []loginEntryDocument{loginEntryDocument(entry)},
			"$slice": -MaxLoginHistory,
		}},
	})
	if err != nil {
		return dberr.Wrap(err, "mongo_store_append_login_failed", nil, nil)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (store *MongoStore) updateFields(context context.Context, id, action string, set bson.M) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := store.collection.UpdateOne(context, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return dberr.Wrap(err, action, nil, nil)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// # Mapping

func (store *MongoStore) toDocument(account *Account) *accountDocument {
	document := &accountDocument{
		Name:      account.Name,
		Email:     account.Email,
		Password:  account.PasswordHash,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}

	if patient := account.Patient; patient != nil {
		document.Birthdate = patient.Birthdate
		document.Gender = patient.Gender
		document.MedicalCondition = patient.MedicalCondition
		document.Phone = patient.Phone
		document.Address = patient.Address
		document.TwoFactorSecret = patient.TwoFactor.Secret
		document.TwoFactorEnabled = patient.TwoFactor.Enabled
		document.BackupCodes = patient.TwoFactor.BackupCodes
		for _, entry := range patient.LoginHistory {
			document.LoginHistory = append(document.LoginHistory, loginEntryDocument(entry))
		}
	}

	if clinician := account.Clinician; clinician != nil {
		available := clinician.Available
		document.Specialty = clinician.Specialty
		document.Phone = clinician.Phone
		document.Experience = clinician.Experience
		document.Qualifications = clinician.Qualifications
		document.QualificationsFile = clinician.QualificationsFile
		document.Available = &available
	}

	return document
}

func (store *MongoStore) toAccount(document *accountDocument) *Account {
	account := &Account{
		ID:           document.ID.Hex(),
		Email:        document.Email,
		Name:         document.Name,
		PasswordHash: document.Password,
		Role:         store.role,
		CreatedAt:    document.CreatedAt,
		UpdatedAt:    document.UpdatedAt,
	}

	switch store.role {
	case sec.RolePatient:
		account.Patient = &PatientProfile{
			Birthdate:        document.Birthdate,
			Gender:           document.Gender,
			MedicalCondition: document.MedicalCondition,
			Phone:            document.Phone,
			Address:          document.Address,
			TwoFactor: TwoFactor{
				Secret:      document.TwoFactorSecret,
				Enabled:     document.TwoFactorEnabled,
				BackupCodes: document.BackupCodes,
			},
		}
		for _, entry := range document.LoginHistory {
			account.Patient.LoginHistory = append(account.Patient.LoginHistory, LoginEntry(entry))
		}
	case sec.RoleClinician:
		account.Clinician = &ClinicianProfile{
			Specialty:          document.Specialty,
			Phone:              document.Phone,
			Experience:         document.Experience,
			Qualifications:     document.Qualifications,
			QualificationsFile: document.QualificationsFile,
			Available:          document.Available == nil || *document.Available,
		}
	}

	return account
}
