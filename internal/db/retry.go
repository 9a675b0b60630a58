package db

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsDuplicateKeyError decides whether an error should trigger another attempt.
type IsDuplicateKeyError func(err error) bool

const DefaultMaxRetries = 3

// WithRetries runs op once plus up to maxRetries more times while isDuplicateKey
// accepts the returned error. Other errors are returned immediately.
func WithRetries(op Operation, maxRetries int, isDuplicateKey IsDuplicateKeyError) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !isDuplicateKey(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	return duplicateKeyMessage(err) != ""
}

// IsDuplicateKeyOn returns a predicate matching duplicate key errors raised by
// the named index only, e.g. IsDuplicateKeyOn("serial_number_1").
func IsDuplicateKeyOn(index string) IsDuplicateKeyError {
	return func(err error) bool {
		msg := duplicateKeyMessage(err)
		return msg != "" && strings.Contains(msg, index)
	}
}

func duplicateKeyMessage(err error) string {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return we.Message
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, writeError := range bwe.WriteErrors {
			if writeError.Code == 11000 {
				return writeError.Message
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return ce.Message
	}
	return ""
}
