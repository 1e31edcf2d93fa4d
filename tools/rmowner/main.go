package main

import (
	"fmt"
	"log"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/doggopher/dogvault/internal/database"
	"github.com/doggopher/dogvault/internal/model"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
)

func main() {
	c := &coral.Command{
		Use:   "rmowner DATABASE SUBJECT",
		Short: "Remove all images owned by a subject from the database",
		Args:  coral.ExactArgs(2),
		RunE: func(_ *coral.Command, args []string) error {
			//
			//
			fmt.Println("Opening", args[0])
			db, err := storm.Open(args[0], database.StormCodec)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			// Count first so the operator sees what is about to go away.
			n, err := db.Select(q.Eq("OwnerID", args[1])).Count(&model.Image{})
			if err != nil && err != storm.ErrNotFound {
				return errors.Wrap(err, "count images")
			}
			if n == 0 {
				fmt.Println("No images for this subject")
				return nil
			}

			err = db.Select(q.Eq("OwnerID", args[1])).Delete(&model.Image{})
			if err != nil && err != storm.ErrNotFound {
				return errors.Wrap(err, "delete images")
			}
			fmt.Println(n, "images removed")

			return nil
		},
	}

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}
