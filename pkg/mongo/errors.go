package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
	// ErrUnexpectedID means a document in the sessions collection has an _id
	// that is not an ObjectID, so it was not written by this package.
	ErrUnexpectedID = errors.New("mongo: stored _id is not an ObjectID")
)
