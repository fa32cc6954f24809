package index

import (
	"fmt"

	"wikipath/internal/sqldump"
	"wikipath/internal/storage"
)

// The dump tables carry more columns than we care about; binders check a
// minimum width and pull out the leading columns by position. Title bytes
// are copied into each row.

type pageRow struct {
	id         storage.PageID
	ns         int32
	title      []byte
	isRedirect bool
}

func bindPage(tuple []sqldump.Value) (pageRow, error) {
	if len(tuple) < 4 {
		return pageRow{}, &sqldump.SchemaError{Table: "page", Want: 4, Got: len(tuple)}
	}
	id, err := intColumn("page", tuple, 0)
	if err != nil {
		return pageRow{}, err
	}
	ns, err := intColumn("page", tuple, 1)
	if err != nil {
		return pageRow{}, err
	}
	title, err := bytesColumn("page", tuple, 2)
	if err != nil {
		return pageRow{}, err
	}
	isRedirect, err := intColumn("page", tuple, 3)
	if err != nil {
		return pageRow{}, err
	}
	return pageRow{
		id:         storage.PageID(id),
		ns:         int32(ns),
		title:      append([]byte(nil), title...),
		isRedirect: isRedirect != 0,
	}, nil
}

type redirectRow struct {
	from  storage.PageID
	ns    int32
	title []byte
}

func bindRedirect(tuple []sqldump.Value) (redirectRow, error) {
	if len(tuple) < 3 {
		return redirectRow{}, &sqldump.SchemaError{Table: "redirect", Want: 3, Got: len(tuple)}
	}
	from, err := intColumn("redirect", tuple, 0)
	if err != nil {
		return redirectRow{}, err
	}
	ns, err := intColumn("redirect", tuple, 1)
	if err != nil {
		return redirectRow{}, err
	}
	title, err := bytesColumn("redirect", tuple, 2)
	if err != nil {
		return redirectRow{}, err
	}
	return redirectRow{
		from:  storage.PageID(from),
		ns:    int32(ns),
		title: append([]byte(nil), title...),
	}, nil
}

type linkRow struct {
	from  storage.PageID
	ns    int32
	title []byte
}

func bindLink(tuple []sqldump.Value) (linkRow, error) {
	if len(tuple) < 3 {
		return linkRow{}, &sqldump.SchemaError{Table: "pagelinks", Want: 3, Got: len(tuple)}
	}
	from, err := intColumn("pagelinks", tuple, 0)
	if err != nil {
		return linkRow{}, err
	}
	ns, err := intColumn("pagelinks", tuple, 1)
	if err != nil {
		return linkRow{}, err
	}
	title, err := bytesColumn("pagelinks", tuple, 2)
	if err != nil {
		return linkRow{}, err
	}
	return linkRow{
		from:  storage.PageID(from),
		ns:    int32(ns),
		title: append([]byte(nil), title...),
	}, nil
}

func intColumn(table string, tuple []sqldump.Value, i int) (int64, error) {
	n, ok := tuple[i].AsInt()
	if !ok {
		return 0, fmt.Errorf("%s tuple: column %d is %s, want integer", table, i, tuple[i])
	}
	return n, nil
}

func bytesColumn(table string, tuple []sqldump.Value, i int) ([]byte, error) {
	b, ok := tuple[i].AsBytes()
	if !ok {
		return nil, fmt.Errorf("%s tuple: column %d is %s, want string", table, i, tuple[i])
	}
	return b, nil
}
