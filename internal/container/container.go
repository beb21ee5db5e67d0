package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/config"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/mailer"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client

	jwtManager *helpers.JWTManager
	counter    ratelimit.Counter
	sender     mailer.Sender

	emailQueue *helpers.EmailQueue
	esClient   *elasticsearch.Client
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetGCS(s *storage.Client)     { gcsClient = s }
func GetGCS() *storage.Client      { return gcsClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

// SetCounter installs the shared rate-limit store (Redis, or memory when
// Redis is not configured).
func SetCounter(c ratelimit.Counter) { counter = c }
func GetCounter() ratelimit.Counter  { return counter }

// SetSender installs the outbound mail path used by the notifier.
func SetSender(s mailer.Sender) { sender = s }
func GetSender() mailer.Sender  { return sender }

// SetEmailQueue installs the RabbitMQ email queue; nil when RabbitMQ is down
// or not configured.
func SetEmailQueue(q *helpers.EmailQueue) { emailQueue = q }
func GetEmailQueue() *helpers.EmailQueue  { return emailQueue }
func SetES(c *elasticsearch.Client)       { esClient = c }
func GetES() *elasticsearch.Client        { return esClient }
