package journal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
	defaultWriteTimeout    = 2 * time.Second
)

var ErrClosed = errors.New("journal closed")

// Option defines connection options for the PostgreSQL journal.
type Option struct {
	Host         string            `json:"host" yaml:"host"`
	Port         int               `json:"port" yaml:"port"`
	User         string            `json:"user" yaml:"user"`
	Password     string            `json:"password" yaml:"password"`
	Database     string            `json:"database" yaml:"database"`
	SSLMode      string            `json:"sslMode" yaml:"ssl_mode"`
	Params       map[string]string `json:"params" yaml:"params"`
	ConnString   string            `json:"connString" yaml:"conn_string"`
	WriteTimeout time.Duration     `json:"writeTimeout" yaml:"write_timeout"`
	Config       *gorm.Config      `json:"-" yaml:"-"`
}

// Record is the persisted form of an Entry.
type Record struct {
	ID        uint64          `gorm:"primaryKey"`
	Session   string          `gorm:"type:uuid;index"`
	Seq       uint64          `gorm:"index"`
	Kind      string          `gorm:"size:16"`
	OrderID   int64           `gorm:"index"`
	Symbol    string          `gorm:"size:32;index"`
	Side      string          `gorm:"size:8"`
	OpenClose string          `gorm:"size:24"`
	Status    string          `gorm:"size:24"`
	Qty       int64
	Price     decimal.Decimal `gorm:"type:numeric"`
	Fee       decimal.Decimal `gorm:"type:numeric"`
	CashDelta decimal.Decimal `gorm:"type:numeric"`
	ErrorCode int
	ErrorText string
	TsEvent   int64
	CreatedAt time.Time
}

func (Record) TableName() string {
	return "order_journal"
}

func toRecord(session string, e Entry) Record {
	return Record{
		Session:   session,
		Seq:       e.Seq,
		Kind:      e.Kind.String(),
		OrderID:   int64(e.OrderID),
		Symbol:    e.Symbol,
		Side:      e.Side.String(),
		OpenClose: e.OpenClose.String(),
		Status:    e.Status.String(),
		Qty:       e.Qty,
		Price:     e.Price,
		Fee:       e.Fee,
		CashDelta: e.CashDelta,
		ErrorCode: e.ErrorCode,
		ErrorText: e.ErrorText,
		TsEvent:   e.TsEvent,
	}
}

// Gorm writes entries to PostgreSQL, one row per entry tagged with a session id.
type Gorm struct {
	db      *gorm.DB
	session string
	timeout time.Duration
}

// Open connects, migrates the journal table and starts a new session.
func Open(option Option) (*Gorm, error) {
	connString, err := option.dsn()
	if err != nil {
		return nil, err
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(connString), config)
	if err != nil {
		return nil, errors.Wrap(err, "open journal").With("host", option.Host)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal")
	}

	timeout := option.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Gorm{db: db, session: uuid.NewString(), timeout: timeout}, nil
}

// Session returns the id tagging every row of this run.
func (g *Gorm) Session() string {
	return g.session
}

func (g *Gorm) Append(e Entry) error {
	if g == nil || g.db == nil {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	rec := toRecord(g.session, e)
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return errors.Wrap(err, "append journal entry").With("order", e.OrderID)
	}
	return nil
}

// Close closes the underlying connection pool.
func (g *Gorm) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	g.db = nil
	return sqlDB.Close()
}

func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}
	if opt.Database == "" {
		return "", fmt.Errorf("journal database is empty")
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}

	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + opt.Database,
	}

	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range opt.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
