package db

import (
	"context"
	"fmt"

	"github.com/ukydev/vehicle-maintenance/internal/errs"
	"github.com/ukydev/vehicle-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMaintenanceCollection wraps a MongoDB collection for maintenance records.
type MongoMaintenanceCollection struct {
	Collection *mongo.Collection
}

// InsertMaintenance inserts a maintenance record into the collection.
func (c *MongoMaintenanceCollection) InsertMaintenance(ctx context.Context, record models.MaintenanceRecord) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if _, err := c.Collection.InsertOne(ctx, record); err != nil {
		return storeErr("insert maintenance", err)
	}
	return nil
}

// FindMaintenanceByOwner returns an owner's records ordered by next_service_date.
func (c *MongoMaintenanceCollection) FindMaintenanceByOwner(ctx context.Context, ownerID string) ([]models.MaintenanceRecord, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "next_service_date", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, storeErr("find maintenance", err)
	}
	defer cursor.Close(ctx)

	records := []models.MaintenanceRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, storeErr("decode maintenance", err)
	}
	return records, nil
}

// UpdateMaintenance applies a partial update in a single $set, so a new
// last_service_date and its derived next_service_date land together.
func (c *MongoMaintenanceCollection) UpdateMaintenance(ctx context.Context, ownerID, id string, patch models.MaintenancePatch) error {
	if c.Collection == nil {
		return errNilCollection
	}
	set, err := maintenanceSetDocument(patch)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id, "owner_id": ownerID}, bson.M{"$set": set})
	if err != nil {
		return storeErr("update maintenance", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: maintenance record %s", errs.ErrNotFound, id)
	}
	return nil
}

// DeleteMaintenance deletes a record. Deleting a missing record succeeds.
func (c *MongoMaintenanceCollection) DeleteMaintenance(ctx context.Context, ownerID, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if _, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID}); err != nil {
		return storeErr("delete maintenance", err)
	}
	return nil
}

// CountMaintenance counts an owner's records.
func (c *MongoMaintenanceCollection) CountMaintenance(ctx context.Context, ownerID string) (int64, error) {
	return c.count(ctx, bson.M{"owner_id": ownerID})
}

// CountMaintenanceDue counts an owner's records due between from and to inclusive.
func (c *MongoMaintenanceCollection) CountMaintenanceDue(ctx context.Context, ownerID, from, to string) (int64, error) {
	return c.count(ctx, bson.M{
		"owner_id":          ownerID,
		"next_service_date": bson.M{"$gte": from, "$lte": to},
	})
}

func (c *MongoMaintenanceCollection) count(ctx context.Context, filter bson.M) (int64, error) {
	if c.Collection == nil {
		return 0, errNilCollection
	}
	n, err := c.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, storeErr("count maintenance", err)
	}
	return n, nil
}

// maintenanceSetDocument translates a validated patch into a $set document.
// A last_service_date without its derived next_service_date is rejected so the
// two fields can never diverge.
func maintenanceSetDocument(p models.MaintenancePatch) (bson.D, error) {
	if p.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", errs.ErrInvalidArgument)
	}
	if (p.LastServiceDate == nil) != (p.NextServiceDate == nil) {
		return nil, fmt.Errorf("%w: last and next service dates must be updated together", errs.ErrInvalidArgument)
	}
	set := bson.D{}
	if p.MaintenanceType != nil {
		set = append(set, bson.E{Key: "maintenance_type", Value: *p.MaintenanceType})
	}
	if p.Mileage != nil {
		set = append(set, bson.E{Key: "mileage", Value: *p.Mileage})
	}
	if p.LastServiceDate != nil {
		set = append(set,
			bson.E{Key: "last_service_date", Value: *p.LastServiceDate},
			bson.E{Key: "next_service_date", Value: *p.NextServiceDate},
		)
	}
	return set, nil
}
