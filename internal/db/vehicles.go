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

// MongoVehicleCollection wraps a MongoDB collection for vehicle operations.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if _, err := c.Collection.InsertOne(ctx, vehicle); err != nil {
		return storeErr("insert vehicle", err)
	}
	return nil
}

// FindVehicleByID finds a vehicle by its ID alone.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

// FindOwnedVehicle finds a vehicle by its ID within an owner's vehicles.
func (c *MongoVehicleCollection) FindOwnedVehicle(ctx context.Context, ownerID, id string) (*models.Vehicle, error) {
	return c.findOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
}

func (c *MongoVehicleCollection) findOne(ctx context.Context, filter bson.M) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	var vehicle models.Vehicle
	if err := c.Collection.FindOne(ctx, filter).Decode(&vehicle); err != nil {
		return nil, notFoundOr("find vehicle", err)
	}
	return &vehicle, nil
}

// FindVehiclesByOwner returns an owner's vehicles ordered by make and model.
func (c *MongoVehicleCollection) FindVehiclesByOwner(ctx context.Context, ownerID string) ([]models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "make", Value: 1}, {Key: "model", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, storeErr("find vehicles", err)
	}
	defer cursor.Close(ctx)

	vehicles := []models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, storeErr("decode vehicles", err)
	}
	return vehicles, nil
}

// UpdateVehicle applies a partial update to an owner's vehicle.
func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, ownerID, id string, patch models.VehiclePatch) error {
	if c.Collection == nil {
		return errNilCollection
	}
	set := vehicleSetDocument(patch)
	if len(set) == 0 {
		return fmt.Errorf("%w: no fields to update", errs.ErrInvalidArgument)
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id, "owner_id": ownerID}, bson.M{"$set": set})
	if err != nil {
		return storeErr("update vehicle", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: vehicle %s", errs.ErrNotFound, id)
	}
	return nil
}

// DeleteVehicle deletes an owner's vehicle. Deleting a missing vehicle succeeds.
func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, ownerID, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if _, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID}); err != nil {
		return storeErr("delete vehicle", err)
	}
	return nil
}

// CountVehicles counts an owner's vehicles.
func (c *MongoVehicleCollection) CountVehicles(ctx context.Context, ownerID string) (int64, error) {
	if c.Collection == nil {
		return 0, errNilCollection
	}
	n, err := c.Collection.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, storeErr("count vehicles", err)
	}
	return n, nil
}

func vehicleSetDocument(p models.VehiclePatch) bson.D {
	set := bson.D{}
	if p.Make != nil {
		set = append(set, bson.E{Key: "make", Value: *p.Make})
	}
	if p.Model != nil {
		set = append(set, bson.E{Key: "model", Value: *p.Model})
	}
	if p.Year != nil {
		set = append(set, bson.E{Key: "year", Value: *p.Year})
	}
	return set
}
