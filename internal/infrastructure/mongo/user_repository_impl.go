package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/internal/domain/repository"
)

// UsersCollection is the collection user documents live in.
const UsersCollection = "users"

// userDocument is the stored shape; field names are shared with the SQL schema.
type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Identifier   string             `bson:"identifier"`
	Email        string             `bson:"username"`
	PasswordHash string             `bson:"password"`
	Enabled      bool               `bson:"enabled"`
	Roles        []string           `bson:"roles"`
}

func toDocument(u *entity.User) (userDocument, error) {
	doc := userDocument{
		Identifier:   u.Identifier(),
		Email:        u.Email(),
		PasswordHash: u.PasswordHash(),
		Enabled:      u.Enabled(),
		Roles:        entity.RoleNames(u.Roles()),
	}
	if u.ID() != "" {
		oid, err := primitive.ObjectIDFromHex(u.ID())
		if err != nil {
			return userDocument{}, repository.ErrUserNotFound
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d userDocument) toEntity() (*entity.User, error) {
	roles, err := entity.ParseRoles(d.Roles)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", d.ID.Hex(), err)
	}
	return entity.RestoreUser(d.ID.Hex(), d.Identifier, d.Email, d.PasswordHash, d.Enabled, roles), nil
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique indexes on identifier and username.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: repository.FieldIdentifier, Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: repository.FieldUsername, Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := repository.Validate(u); err != nil {
		return nil, err
	}
	doc, err := toDocument(u)
	if err != nil {
		return nil, err
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, translate(err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return u.WithID(oid.Hex()), nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if err := repository.Validate(u); err != nil {
		return err
	}
	if u.ID() == "" {
		return repository.ErrUserNotFound
	}
	doc, err := toDocument(u)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{repository.FieldUsername: email})
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{repository.FieldIdentifier: identifier})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toEntity()
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrUserNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", repository.ErrDuplicateUser, err)
	}
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
