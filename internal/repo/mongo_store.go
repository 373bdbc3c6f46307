package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// Collection names used by MongoStore.
const (
	mongoComplaints  = "complaints"
	mongoCounters    = "counters"
	mongoIdempotency = "idempotency"
)

// mongoEventSeq names the counter that numbers history events.
const mongoEventSeq = "status_events"

// withoutHistory keeps the embedded history out of complaint reads.
var withoutHistory = bson.M{"history": 0}

// MongoStore persists complaints in MongoDB. Numeric ids come from a
// counters collection so ordering and ids match the SQL stores.
//
// The transition history lives in a history array on the complaint
// document, so a status change and its event are one single-document write.
type MongoStore struct {
	complaints  *mongo.Collection
	counters    *mongo.Collection
	idempotency *mongo.Collection

	// seq allocates sequence numbers; replaced in tests.
	seq func(ctx context.Context, name string) (uint64, error)
}

// NewMongoStore binds a store to db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	s := &MongoStore{
		complaints:  db.Collection(mongoComplaints),
		counters:    db.Collection(mongoCounters),
		idempotency: db.Collection(mongoIdempotency),
	}
	s.seq = s.nextID
	return s
}

// EnsureIndexes creates the secondary indexes used by filters and the
// idempotency TTL.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.complaints.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "submitter_id", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}); err != nil {
		return err
	}
	_, err := s.idempotency.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "scope", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	return err
}

// nextID atomically increments and returns the named sequence.
func (s *MongoStore) nextID(ctx context.Context, name string) (uint64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return uint64(doc.Seq), nil
}

// Create inserts a Pending complaint.
func (s *MongoStore) Create(ctx context.Context, in domain.NewComplaint) (*domain.Complaint, error) {
	id, err := s.seq(ctx, mongoComplaints)
	if err != nil {
		return nil, err
	}
	// Mongo keeps millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	c := &domain.Complaint{
		ID:          id,
		SubmitterID: in.SubmitterID,
		OrderID:     in.OrderID,
		Text:        in.Text,
		Category:    in.Category,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.complaints.InsertOne(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the complaint with id, or ErrNotFound.
func (s *MongoStore) Get(ctx context.Context, id uint64) (*domain.Complaint, error) {
	var c domain.Complaint
	err := s.complaints.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(withoutHistory),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns complaints matching f in creation order.
func (s *MongoStore) List(ctx context.Context, f domain.Filter) ([]domain.Complaint, error) {
	cur, err := s.complaints.Find(ctx, mongoFilter(f),
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetProjection(withoutHistory),
	)
	if err != nil {
		return nil, err
	}
	out := []domain.Complaint{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats groups the complaints matching f by category.
func (s *MongoStore) Stats(ctx context.Context, f domain.Filter) (map[domain.Category]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: mongoFilter(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.complaints.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Category domain.Category `bson:"_id"`
		N        int64           `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[domain.Category]int64, len(rows))
	for _, r := range rows {
		if r.N > 0 {
			out[r.Category] = r.N
		}
	}
	return out, nil
}

// Version returns the count of complaints matching f and their greatest
// UpdatedAt, for ETags.
func (s *MongoStore) Version(ctx context.Context, f domain.Filter) (int64, *time.Time, error) {
	filter := mongoFilter(f)
	n, err := s.complaints.CountDocuments(ctx, filter)
	if err != nil || n == 0 {
		return 0, nil, err
	}
	var row struct {
		UpdatedAt time.Time `bson:"updated_at"`
	}
	err = s.complaints.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetProjection(bson.M{"updated_at": 1}),
	).Decode(&row)
	if err != nil {
		return 0, nil, err
	}
	return n, &row.UpdatedAt, nil
}

// UpdateStatus applies upd unless the complaint is Resolved. The new status
// and the history event are written by one pipeline update conditional on
// the status not being Resolved, which is the serialization point between
// concurrent admins. The event's From is read from the document being
// updated, never from an earlier read.
func (s *MongoStore) UpdateStatus(ctx context.Context, upd domain.StatusUpdate) (*domain.Complaint, error) {
	cur, err := s.Get(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	if cur.Resolved() {
		return nil, ErrTerminal
	}

	// Allocated before the write; a failed write leaves only a gap.
	evID, err := s.seq(ctx, mongoEventSeq)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	ev := bson.D{
		{Key: "_id", Value: evID},
		{Key: "complaint_id", Value: upd.ID},
		{Key: "actor_id", Value: literal(upd.ActorID)},
		{Key: "from", Value: "$status"},
		{Key: "to", Value: literal(string(upd.To))},
		{Key: "created_at", Value: now},
	}
	set := bson.D{
		{Key: "status", Value: literal(string(upd.To))},
		{Key: "updated_at", Value: now},
	}
	if upd.Response != nil {
		ev = append(ev, bson.E{Key: "message", Value: literal(*upd.Response)})
		set = append(set, bson.E{Key: "admin_response", Value: literal(*upd.Response)})
	}
	pipeline := mongo.Pipeline{
		// History first: "$status" still holds the old value here.
		{{Key: "$set", Value: bson.D{{Key: "history", Value: bson.M{
			"$concatArrays": bson.A{bson.M{"$ifNull": bson.A{"$history", bson.A{}}}, bson.A{ev}},
		}}}}},
		{{Key: "$set", Value: set}},
	}
	if upd.Response == nil {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: "admin_response"}})
	}

	var out domain.Complaint
	err = s.complaints.FindOneAndUpdate(ctx,
		bson.M{"_id": upd.ID, "status": bson.M{"$ne": domain.StatusResolved}},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(withoutHistory),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTerminal
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// literal keeps user text from being read as a field path or operator
// inside a pipeline update.
func literal(v any) bson.M { return bson.M{"$literal": v} }

// History returns the transition events of a complaint, oldest first. An
// unknown complaint has an empty history.
func (s *MongoStore) History(ctx context.Context, id uint64) ([]domain.StatusEvent, error) {
	var doc struct {
		History []domain.StatusEvent `bson:"history"`
	}
	err := s.complaints.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"history": 1}),
	).Decode(&doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if doc.History == nil {
		return []domain.StatusEvent{}, nil
	}
	return doc.History, nil
}

type mongoIdem struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Scope      string    `bson:"scope"`
	Key        string    `bson:"key"`
	ResourceID uint64    `bson:"resource_id"`
	Status     int       `bson:"status"`
	CreatedAt  time.Time `bson:"created_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// LookupIdempotency returns a non-expired record or ErrNotFound. The TTL
// index removes expired documents lazily, so expiry is also checked here.
func (s *MongoStore) LookupIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	var doc mongoIdem
	err := s.idempotency.FindOne(ctx, bson.M{
		"user_id":    userID,
		"scope":      scope,
		"key":        key,
		"expires_at": bson.M{"$gt": now.UTC()},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.Idempotency{
		ID:         doc.ID,
		UserID:     doc.UserID,
		Scope:      doc.Scope,
		Key:        doc.Key,
		ResourceID: doc.ResourceID,
		Status:     doc.Status,
		CreatedAt:  doc.CreatedAt,
		ExpiresAt:  doc.ExpiresAt,
	}, nil
}

// SaveIdempotency inserts a record and returns ErrDuplicate on unique violation.
func (s *MongoStore) SaveIdempotency(ctx context.Context, userID, scope, key string, resourceID uint64, status int, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.idempotency.InsertOne(ctx, mongoIdem{
		ID:         uuid.NewString(),
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// mongoFilter mirrors filterScope for MongoDB.
func mongoFilter(f domain.Filter) bson.M {
	m := bson.M{}
	if f.SubmitterID != "" {
		m["submitter_id"] = f.SubmitterID
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if start, end, ok := f.DayRange(); ok {
		m["created_at"] = bson.M{"$gte": start.UTC(), "$lt": end.UTC()}
	}
	return m
}
