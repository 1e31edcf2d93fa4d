package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/asdine/storm/v3"
	"github.com/doggopher/dogvault/internal/database"
	"github.com/doggopher/dogvault/internal/model"
	"github.com/doggopher/dogvault/pkg/stormsql"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
)

func main() {
	c := &coral.Command{
		Use:   "query DATABASE SQL",
		Short: "Run a SELECT statement against the dogvault database",
		Args:  coral.ExactArgs(2),
		RunE: func(_ *coral.Command, args []string) error {
			//
			//
			sc, err := stormsql.ParseSelect(args[1])
			if err != nil {
				return err
			}
			if sc.Tablename != "images" {
				return errors.Errorf("unknown tablename: %s", sc.Tablename)
			}

			//
			//
			fmt.Println("Opening", args[0])
			db, err := storm.Open(args[0], database.StormCodec)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer db.Close()

			//
			// Prepare request
			//

			query := db.Select(sc.Matcher)
			if sc.Skip > 0 {
				query.Skip(sc.Skip)
			}
			if sc.Limit > 0 {
				query.Limit(sc.Limit)
			}
			if len(sc.OrderBy) > 0 {
				query.OrderBy(sc.OrderBy...)
				if sc.OrderByReversed {
					query.Reverse()
				}
			}

			// Execute

			if sc.Count {
				n, err := query.Count(&model.Image{})
				if err != nil {
					return errors.Wrap(err, "could not perform query")
				}

				fmt.Println("Count:", n)
				return nil
			}

			images := []*model.Image{}
			err = query.Find(&images)
			if err == storm.ErrNotFound {
				fmt.Println("[]")
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "could not perform query")
			}

			jsondump(images)
			return nil
		},
	}

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func jsondump(v any) {
	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(d))
}
