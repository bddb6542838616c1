// Package application contém os casos de uso do limite de claims.
//
// Ele depende apenas do pacote domain (e do logger) e não conhece net/http.
// Ex.: ClaimLimiter.Decide(ctx) retorna uma Decision (allow/deny + retry-after)
// e ClaimService.Claim(ctx, id) executa o claim respeitando a janela.
// RequestGuard junta o throttle por cliente com o teto de requisições simultâneas.
package application
