package inventory

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var tracer = otel.Tracer("inventory")

// ServiceDeps dependencias del servicio de transacciones de stock.
type ServiceDeps struct {
	TxRunner TxRunner
	Lines    repository.InventoryLineRepository // lecturas fuera de transacción
	Ledger   repository.LedgerRepository        // lecturas fuera de transacción
	Settings Settings
	Logger   *zerolog.Logger
	Metrics  Metrics
	Hooks    []PostCommitHook
}

// StockTransactionService registra movimientos de inventario de forma transaccional
// (IN, OUT, ADJUSTMENT) con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
type StockTransactionService struct {
	txRunner TxRunner
	lines    repository.InventoryLineRepository
	ledger   repository.LedgerRepository
	settings Settings
	log      zerolog.Logger
	metrics  Metrics
	hooks    []PostCommitHook
	now      func() time.Time
}

// NewStockTransactionService construye el servicio.
func NewStockTransactionService(deps ServiceDeps) *StockTransactionService {
	log := zerolog.Nop()
	if deps.Logger != nil {
		log = deps.Logger.With().Str("component", "stock_transactions").Logger()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &StockTransactionService{
		txRunner: deps.TxRunner,
		lines:    deps.Lines,
		ledger:   deps.Ledger,
		settings: deps.Settings.withDefaults(),
		log:      log,
		metrics:  metrics,
		hooks:    deps.Hooks,
		now:      time.Now,
	}
}

// MovementInput entrada para aplicar un movimiento individual.
type MovementInput struct {
	Identity entity.Identity
	Kind     entity.MovementKind
	Quantity int64
	Actor    string
	Source   entity.Source
	UnitCost *decimal.Decimal
	Notes    string
}

// ApplyMovement bloquea la línea (creándola en 0 si no existe), valida suficiencia para salidas,
// registra el movimiento en el libro y actualiza la cantidad, todo en una transacción.
func (s *StockTransactionService) ApplyMovement(ctx context.Context, in MovementInput) (entry *entity.LedgerEntry, err error) {
	ctx, span := tracer.Start(ctx, "inventory.ApplyMovement", trace.WithAttributes(
		attribute.String("movement.kind", string(in.Kind)),
		attribute.Int64("movement.quantity", in.Quantity),
	))
	defer func() { endSpan(span, err) }()

	mv := entity.Movement{
		Identity: in.Identity.Normalize(),
		Kind:     in.Kind,
		Quantity: in.Quantity,
		UnitCost: in.UnitCost,
		Notes:    strings.TrimSpace(in.Notes),
	}
	actor := strings.TrimSpace(in.Actor)
	if err := validateCaller(actor, in.Source); err != nil {
		return nil, err
	}
	if err := validateMovement(mv); err != nil {
		return nil, err
	}

	start := time.Now()
	now := s.now()
	var line *entity.InventoryLine
	err = s.txRunner.Run(ctx, func(repos TxRepos) error {
		var txErr error
		entry, line, txErr = s.ApplyInTx(ctx, repos, mv, actor, in.Source, now)
		return txErr
	})
	s.metrics.ObserveTx("apply_movement", time.Since(start))
	if err != nil {
		return nil, err
	}
	s.metrics.MovementApplied(mv.Kind)
	s.log.Debug().
		Str("line_id", line.ID).
		Str("kind", string(mv.Kind)).
		Int64("quantity", mv.Quantity).
		Int64("balance", line.Quantity).
		Msg("movimiento aplicado")

	s.RunFollowUps(ctx, []entity.InventoryLine{*line})
	return entry, nil
}

// ApplyBulk aplica una lista de movimientos como una sola unidad atómica: si alguno falla,
// se revierten todos. Los bloqueos se adquieren en orden canónico de identidad para evitar
// deadlocks entre llamadas concurrentes; el resultado conserva el orden de entrada.
func (s *StockTransactionService) ApplyBulk(ctx context.Context, movements []entity.Movement, actor string, source entity.Source) (entries []*entity.LedgerEntry, err error) {
	ctx, span := tracer.Start(ctx, "inventory.ApplyBulk", trace.WithAttributes(
		attribute.Int("movements.count", len(movements)),
	))
	defer func() { endSpan(span, err) }()

	actor = strings.TrimSpace(actor)
	if err := validateCaller(actor, source); err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, domain.NewValidation("movements", "lista vacía")
	}
	normalized := make([]entity.Movement, len(movements))
	ids := make([]entity.Identity, len(movements))
	for i, mv := range movements {
		mv.Identity = mv.Identity.Normalize()
		mv.Notes = strings.TrimSpace(mv.Notes)
		if err := validateMovement(mv); err != nil {
			return nil, &domain.LineError{Line: i, Err: err}
		}
		normalized[i] = mv
		ids[i] = mv.Identity
	}

	start := time.Now()
	now := s.now()
	entries = make([]*entity.LedgerEntry, len(normalized))
	var touched []entity.InventoryLine
	err = s.txRunner.Run(ctx, func(repos TxRepos) error {
		touched = touched[:0]
		last := make(map[string]int)
		for _, i := range LockOrder(ids) {
			entry, line, txErr := s.ApplyInTx(ctx, repos, normalized[i], actor, source, now)
			if txErr != nil {
				return &domain.LineError{Line: i, Err: txErr}
			}
			entries[i] = entry
			if pos, ok := last[line.ID]; ok {
				touched[pos] = *line
				continue
			}
			last[line.ID] = len(touched)
			touched = append(touched, *line)
		}
		return nil
	})
	s.metrics.ObserveTx("apply_bulk", time.Since(start))
	if err != nil {
		return nil, err
	}
	for _, mv := range normalized {
		s.metrics.MovementApplied(mv.Kind)
	}
	s.log.Debug().Int("movements", len(normalized)).Int("lines", len(touched)).Msg("movimientos masivos aplicados")

	s.RunFollowUps(ctx, touched)
	return entries, nil
}

// ApplyInTx aplica un movimiento usando los repositorios proporcionados (misma transacción del caller).
// Bloquea la línea, verifica que la cantidad resultante no sea negativa, actualiza la línea y
// guarda el registro en el libro. No ejecuta acciones post-commit: el caller lo hace tras el commit.
func (s *StockTransactionService) ApplyInTx(
	ctx context.Context,
	repos TxRepos,
	mv entity.Movement,
	actor string,
	source entity.Source,
	now time.Time,
) (*entity.LedgerEntry, *entity.InventoryLine, error) {
	if err := validateMovement(mv); err != nil {
		return nil, nil, err
	}
	// Bloquea la fila de la línea (SELECT FOR UPDATE) para evitar condiciones de carrera
	line, err := repos.Lines.GetOrCreateForUpdate(ctx, mv.Identity, s.settings.DefaultLowStockThreshold)
	if err != nil {
		return nil, nil, err
	}
	delta := mv.Delta()
	if delta > 0 && line.Quantity > math.MaxInt64-delta {
		return nil, nil, domain.NewValidation("quantity", "la cantidad resultante excede el máximo representable")
	}
	if !line.CanApply(delta) {
		s.metrics.InsufficientStock()
		return nil, nil, &domain.InsufficientStockError{
			Identity:  mv.Identity.String(),
			Available: line.Quantity,
			Requested: -delta,
		}
	}
	line.Quantity += delta
	line.LastUpdated = now
	if mv.Kind == entity.MovementIN && mv.UnitCost != nil {
		cost := *mv.UnitCost
		line.PurchasePrice = &cost
	}
	if err := repos.Lines.Update(ctx, line); err != nil {
		return nil, nil, err
	}
	entry := &entity.LedgerEntry{
		ID:              uuid.New().String(),
		InventoryLineID: line.ID,
		Identity:        line.Identity,
		Kind:            mv.Kind,
		Quantity:        mv.Quantity,
		BalanceAfter:    line.Quantity,
		UnitCost:        mv.UnitCost,
		PerformedBy:     actor,
		Notes:           mv.Notes,
		Source:          source,
		CreatedAt:       now,
	}
	if err := repos.Ledger.Create(ctx, entry); err != nil {
		return nil, nil, err
	}
	return entry, line, nil
}

// LineSettingsInput atributos no cuantitativos de una línea; nil = sin cambio.
type LineSettingsInput struct {
	Identity          entity.Identity
	LowStockThreshold *int64
	SupplierRef       *string
	PurchasePrice     *decimal.Decimal
}

// SetLineSettings actualiza umbral, proveedor y precio de compra bajo el mismo bloqueo de fila.
// La línea se crea en 0 si aún no existe.
func (s *StockTransactionService) SetLineSettings(ctx context.Context, in LineSettingsInput) (*entity.InventoryLine, error) {
	id := in.Identity.Normalize()
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if in.LowStockThreshold != nil && *in.LowStockThreshold < 0 {
		return nil, domain.NewValidation("low_stock_threshold", "no puede ser negativo")
	}
	if in.PurchasePrice != nil && in.PurchasePrice.IsNegative() {
		return nil, domain.NewValidation("purchase_price", "no puede ser negativo")
	}
	now := s.now()
	var line *entity.InventoryLine
	err := s.txRunner.Run(ctx, func(repos TxRepos) error {
		var err error
		line, err = repos.Lines.GetOrCreateForUpdate(ctx, id, s.settings.DefaultLowStockThreshold)
		if err != nil {
			return err
		}
		if in.LowStockThreshold != nil {
			line.LowStockThreshold = *in.LowStockThreshold
		}
		if in.SupplierRef != nil {
			line.SupplierRef = strings.TrimSpace(*in.SupplierRef)
		}
		if in.PurchasePrice != nil {
			price := *in.PurchasePrice
			line.PurchasePrice = &price
		}
		line.LastUpdated = now
		return repos.Lines.Update(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	s.RunFollowUps(ctx, []entity.InventoryLine{*line})
	return line, nil
}

// GetLine devuelve la línea de una identidad o ErrNotFound.
func (s *StockTransactionService) GetLine(ctx context.Context, id entity.Identity) (*entity.InventoryLine, error) {
	id = id.Normalize()
	if err := id.Validate(); err != nil {
		return nil, err
	}
	line, err := s.lines.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.ErrNotFound
	}
	return line, nil
}

// ListLedger historial de movimientos de una identidad, más reciente primero (sin bloqueo).
func (s *StockTransactionService) ListLedger(ctx context.Context, id entity.Identity, limit, offset int) ([]*entity.LedgerEntry, error) {
	line, err := s.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListByLine(ctx, line.ID, limit, offset)
}

// RunFollowUps ejecuta las acciones post-commit con reintentos acotados. Los fallos se
// registran y no afectan el cambio ya confirmado.
func (s *StockTransactionService) RunFollowUps(ctx context.Context, lines []entity.InventoryLine) {
	if len(lines) == 0 || len(s.hooks) == 0 {
		return
	}
	// El commit ya ocurrió: la cancelación del request no debe cortar el seguimiento.
	ctx = context.WithoutCancel(ctx)
	for _, h := range s.hooks {
		if err := s.runHook(ctx, h, lines); err != nil {
			s.metrics.FollowUpFailed(h.Name())
			s.log.Error().Err(err).
				Str("hook", h.Name()).
				Int("lines", len(lines)).
				Msg("acción post-commit falló")
		}
	}
}

func (s *StockTransactionService) runHook(ctx context.Context, h PostCommitHook, lines []entity.InventoryLine) error {
	backoff := s.settings.HookBackoff
	var err error
	for attempt := 1; attempt <= s.settings.HookRetries; attempt++ {
		if err = h.AfterCommit(ctx, lines); err == nil {
			return nil
		}
		s.log.Warn().Err(err).Str("hook", h.Name()).Int("attempt", attempt).Msg("reintentando acción post-commit")
		if attempt < s.settings.HookRetries && backoff > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}

// LockOrder devuelve los índices de ids ordenados por clave canónica (estable ante empates).
func LockOrder(ids []entity.Identity) []int {
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ids[order[a]].Key() < ids[order[b]].Key()
	})
	return order
}

func validateCaller(actor string, source entity.Source) error {
	if actor == "" {
		return domain.NewValidation("actor", "requerido")
	}
	if !source.Valid() {
		return domain.NewValidation("source", "origen inválido")
	}
	return nil
}

func validateMovement(mv entity.Movement) error {
	if err := mv.Identity.Validate(); err != nil {
		return err
	}
	switch mv.Kind {
	case entity.MovementIN, entity.MovementOUT:
		if mv.Quantity <= 0 {
			return domain.NewValidation("quantity", "debe ser mayor que cero")
		}
	case entity.MovementADJUSTMENT:
		if mv.Quantity == 0 {
			return domain.NewValidation("quantity", "el ajuste no puede ser cero")
		}
		if mv.Quantity == math.MinInt64 {
			return domain.NewValidation("quantity", "fuera de rango")
		}
	default:
		return domain.NewValidation("kind", "tipo de movimiento no soportado")
	}
	if mv.UnitCost != nil && mv.UnitCost.IsNegative() {
		return domain.NewValidation("unit_cost", "no puede ser negativo")
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
