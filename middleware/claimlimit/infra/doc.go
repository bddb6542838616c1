// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryStore, RedisStore, SQLiteStore: storage do histórico de claims
//   - ScopedStore: isola o storage de cada cliente com um prefixo de chave
//   - Throttle: token bucket por cliente (golang.org/x/time/rate) com espera até o próximo token
//   - MemoryAccountRepository: contas em memória (com seed YAML)
package infra
